package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/san-kum/ackersim/internal/sim"
	"github.com/san-kum/ackersim/internal/storage"
)

// WriteCSV writes samples in the same layout as a stored trace.
func WriteCSV(w io.Writer, samples []sim.Sample) error {
	cw := csv.NewWriter(w)
	if err := storage.WriteTrace(cw, samples); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSV(path string, samples []sim.Sample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, samples)
}
