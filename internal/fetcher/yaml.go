package fetcher

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/opportunity-etl/internal/etl"
)

// ReadYAMLTable parses a YAML document holding a sequence of flat mappings
// into a named table:
//
//	- source_stage: Qualification
//	  std_stage: Pipeline
//	- source_stage: Closed Won
//	  std_stage: Won
//
// Columns are the union of keys in first-appearance order. Null values and
// absent keys become empty cells.
func ReadYAMLTable(name string, r io.Reader) (etl.Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return etl.NewTable(name, nil, nil), nil
		}
		return etl.Table{}, eris.Wrapf(err, "yaml: decode table %s", name)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return etl.Table{}, eris.Errorf("yaml: table %s must be a sequence of mappings (line %d)", name, root.Line)
	}

	var header []string
	colIdx := make(map[string]int)
	records := make([]map[string]string, 0, len(root.Content))

	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return etl.Table{}, eris.Errorf("yaml: table %s row at line %d is not a mapping", name, item.Line)
		}
		rec := make(map[string]string, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, val := item.Content[i], item.Content[i+1]
			if val.Kind != yaml.ScalarNode && val.Kind != yaml.AliasNode {
				return etl.Table{}, eris.Errorf("yaml: table %s field %q at line %d is not a scalar", name, key.Value, val.Line)
			}
			if val.Kind == yaml.AliasNode && val.Alias != nil {
				val = val.Alias
			}
			if _, ok := colIdx[key.Value]; !ok {
				colIdx[key.Value] = len(header)
				header = append(header, key.Value)
			}
			if val.Tag == "!!null" {
				continue
			}
			rec[key.Value] = val.Value
		}
		records = append(records, rec)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(header))
		for k, v := range rec {
			row[colIdx[k]] = v
		}
		rows[i] = row
	}
	return etl.NewTable(name, header, rows), nil
}
