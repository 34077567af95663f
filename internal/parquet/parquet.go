// Package parquet encodes report tables as parquet files.
package parquet

import (
	"fmt"
	"os"

	plocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Encode writes rows of strings under schema and returns the file bytes.
// Short rows are padded with empty values.
func (s Schema) Encode(rows [][]string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "ckandiff-*.parquet")
	if err != nil {
		return nil, err
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	fw, err := plocal.NewLocalFileWriter(name)
	if err != nil {
		return nil, err
	}

	pw, err := writer.NewCSVWriter(s.ToGoParquetSchema(), fw, 1)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range rows {
		rec := make([]*string, len(s))
		for j := range s {
			v := ""
			if j < len(row) {
				v = row[j]
			}
			rec[j] = &v
		}
		if err := pw.WriteString(rec); err != nil {
			fw.Close()
			return nil, fmt.Errorf("parquet row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	return os.ReadFile(name)
}
