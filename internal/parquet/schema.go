package parquet

import (
	"fmt"
	"strings"
	"unicode"
)

type Field struct {
	Name           string
	Type           string
	ConvertedType  string
	RepetitionType string
}

type Schema []Field

// StringSchema describes a report table: one optional UTF8 column per
// header, named in snake case.
func StringSchema(headers []string) Schema {
	s := make(Schema, len(headers))
	for i, h := range headers {
		s[i] = Field{
			Name:           ColumnName(h),
			Type:           "BYTE_ARRAY",
			ConvertedType:  "UTF8",
			RepetitionType: "OPTIONAL",
		}
	}
	return s
}

// ColumnName turns a report header such as "Is Part Of" into is_part_of.
func ColumnName(header string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.TrimSpace(header) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			sep = true
		}
	}
	return b.String()
}

func (s Schema) ToGoParquetSchema() []string {
	schema := make([]string, len(s))
	for i, field := range s {
		parts := []string{
			fmt.Sprintf("name=%s", field.Name),
			fmt.Sprintf("type=%s", field.Type),
		}
		if field.ConvertedType != "" {
			parts = append(parts, fmt.Sprintf("convertedtype=%s", field.ConvertedType))
		}
		if field.RepetitionType != "" {
			parts = append(parts, fmt.Sprintf("repetitiontype=%s", field.RepetitionType))
		}
		schema[i] = strings.Join(parts, ", ")
	}

	return schema
}
