/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/saviopoovathingal/SU2/readfiles"
	"github.com/saviopoovathingal/SU2/sorters"
	"github.com/saviopoovathingal/SU2/utils"
	"github.com/saviopoovathingal/SU2/writers"
)

type SurfaceModel struct {
	GridFile   string
	ParamsFile string
	OutputFile string
	NRanks     int
	Profile    bool
}

type InputParameters struct {
	Title           string  `yaml:"Title"`
	SolidName       string  `yaml:"SolidName"`
	Partitioner     string  `yaml:"Partitioner"` // "linear" or "metis"
	ImbalanceFactor float32 `yaml:"ImbalanceFactor"`
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Solid Name\n", ip.SolidName)
	fmt.Printf("[%s]\t\t= Partitioner\n", ip.Partitioner)
	fmt.Printf("%8.5f\t\t= Imbalance Factor\n", ip.ImbalanceFactor)
}

// SurfaceCmd represents the surface command
var SurfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Write the surface mesh as a single ASCII STL file",
	Long: `Distributes a surface mesh across n ranks, resolves the element
connectivity that crosses partition boundaries, and gathers the
triangulated geometry onto one rank which writes the STL artifact`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		m := &SurfaceModel{}
		if m.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			panic(err)
		}
		m.ParamsFile, _ = cmd.Flags().GetString("inputParametersFile")
		m.OutputFile, _ = cmd.Flags().GetString("outputFile")
		m.NRanks, _ = cmd.Flags().GetInt("nRanks")
		m.Profile, _ = cmd.Flags().GetBool("profile")
		if m.Profile {
			defer profile.Start().Stop()
		}
		ip := processInput(m)
		RunSurface(m, ip)
	},
}

func processInput(m *SurfaceModel) (ip *InputParameters) {
	ip = &InputParameters{
		Title:           "surface output",
		SolidName:       "SU2_output",
		Partitioner:     "linear",
		ImbalanceFactor: 1.05,
	}
	if len(m.GridFile) == 0 {
		err := fmt.Errorf("must supply a grid file (-F, --gridFile) in .su2 format")
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if len(m.ParamsFile) != 0 {
		var (
			data []byte
			err  error
		)
		if data, err = ioutil.ReadFile(m.ParamsFile); err != nil {
			fmt.Printf("error: unable to read input parameters file: %s\n", err.Error())
			os.Exit(1)
		}
		if err = ip.Parse(data); err != nil {
			fmt.Printf("error: unable to parse input parameters file: %s\n", err.Error())
			os.Exit(1)
		}
	}
	ip.Print()
	return
}

func RunSurface(m *SurfaceModel, ip *InputParameters) {
	var (
		mesh       = readfiles.ReadSU2Surface(m.GridFile, true)
		elemToRank []int
		err        error
	)
	if m.NRanks < 1 {
		m.NRanks = 1
	}
	switch ip.Partitioner {
	case "metis":
		cfg := sorters.DefaultPartitionConfig(int32(m.NRanks))
		cfg.ImbalanceFactor = ip.ImbalanceFactor
		sp := sorters.NewSurfacePartitioner(mesh, cfg)
		if elemToRank, err = sp.Partition(); err != nil {
			log.Fatalf("partitioning failed: %s", err.Error())
		}
	case "linear":
		elemToRank = sorters.LinearPartition(mesh.NumElements(), m.NRanks)
	default:
		log.Fatalf("unknown partitioner [%s], want linear or metis", ip.Partitioner)
	}

	var (
		sd       = sorters.NewSurfaceDistribution(mesh, m.NRanks, elemToRank)
		w        = utils.NewWorld(m.NRanks)
		mu       sync.Mutex
		writeErr error
	)
	w.RunRanks(func(c *utils.Comm) {
		stl := writers.NewSTLWriter([]string{"x", "y", "z"}, m.OutputFile,
			sd.RankSorter(c.Rank), c)
		stl.SolidName = ip.SolidName
		if err := stl.Write(); err != nil {
			mu.Lock()
			writeErr = err
			mu.Unlock()
			return
		}
		if c.Rank == utils.MasterRank {
			log.Printf("Wrote %s: %d bytes in %s (%.2f MB/s)",
				stl.FileName(), stl.FileSize(), stl.UsedTime(), stl.Bandwidth())
		}
	})
	if writeErr != nil {
		log.Fatalf("surface write failed: %s", writeErr.Error())
	}
}

func init() {
	rootCmd.AddCommand(SurfaceCmd)
	SurfaceCmd.Flags().StringP("gridFile", "F", "", "surface grid file in .su2 format")
	SurfaceCmd.Flags().StringP("inputParametersFile", "I", "", "input parameters file in yaml format")
	SurfaceCmd.Flags().StringP("outputFile", "o", "surface", "output file name, .stl is appended")
	SurfaceCmd.Flags().IntP("nRanks", "n", 1, "number of ranks to partition the mesh across")
	SurfaceCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
}
