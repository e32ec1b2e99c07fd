// Package codec exposes the export formats supported by cursor exports.
package codec

import (
	"github.com/pkg/errors"

	"github.com/go-data-exporter/cursor"
	csvcodec "github.com/go-data-exporter/cursor/codec/csv"
	jsoncodec "github.com/go-data-exporter/cursor/codec/json"
	tsvcodec "github.com/go-data-exporter/cursor/codec/tsv"
)

func JSON(opts ...jsoncodec.Option) cursor.Codec {
	return jsoncodec.New(opts...)
}

func CSV(opts ...csvcodec.Option) cursor.Codec {
	return csvcodec.New(opts...)
}

func TSV(opts ...tsvcodec.Option) cursor.Codec {
	return tsvcodec.New(opts...)
}

// ByName returns the codec for a format name: csv, tsv, json or ndjson.
func ByName(format string) (cursor.Codec, error) {
	switch format {
	case "csv":
		return CSV(), nil
	case "tsv":
		return TSV(), nil
	case "json":
		return JSON(), nil
	case "ndjson", "jsonl":
		return JSON(jsoncodec.WithNewlineDelimited(true)), nil
	}
	return nil, errors.Errorf("unknown export format %q", format)
}
