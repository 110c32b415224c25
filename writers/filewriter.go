package writers

import (
	"strings"
	"time"

	"github.com/saviopoovathingal/SU2/sorters"
)

// FileWriter carries the state shared by the output file writers: the
// per-node field names, the destination file name and the attached data
// sorter, plus write statistics filled in on the coordinating rank after a
// successful write.
type FileWriter struct {
	fields   []string
	fileName string
	sorter   sorters.DataSorter

	// Statistics, valid on the master rank after Write returns nil
	fileSize  int64
	usedTime  time.Duration
	bandwidth float64 // MB/s
}

func newFileWriter(fields []string, fileName, fileExt string,
	sorter sorters.DataSorter) (fw FileWriter) {
	if !strings.HasSuffix(fileName, fileExt) {
		fileName += fileExt
	}
	fw = FileWriter{
		fields:   fields,
		fileName: fileName,
		sorter:   sorter,
	}
	return
}

func (fw *FileWriter) FileName() (name string) {
	return fw.fileName
}

func (fw *FileWriter) Fields() (fields []string) {
	return fw.fields
}

// FileSize returns the number of bytes written
func (fw *FileWriter) FileSize() (size int64) {
	return fw.fileSize
}

// UsedTime returns the wall time spent writing the artifact
func (fw *FileWriter) UsedTime() (t time.Duration) {
	return fw.usedTime
}

// Bandwidth returns the achieved write bandwidth in MB/s
func (fw *FileWriter) Bandwidth() (mbs float64) {
	return fw.bandwidth
}

func (fw *FileWriter) recordWrite(size int64, elapsed time.Duration) {
	fw.fileSize = size
	fw.usedTime = elapsed
	if elapsed > 0 {
		fw.bandwidth = float64(size) / (1e6 * elapsed.Seconds())
	}
}
