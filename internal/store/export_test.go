package store

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExportHidesSecrets(t *testing.T) {
	f := newFixture()
	f.name.SetValue("porch-light")
	f.password.SetValue("longenough1")

	tests := []struct {
		name        string
		showSecrets bool
		wantPass    string
	}{
		{"hidden", false, "<hidden>"},
		{"shown", true, "longenough1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Export(f.reg, "v1.0", tt.showSecrets)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			var doc ExportedConfig
			if err := yaml.Unmarshal(data, &doc); err != nil {
				t.Fatalf("exported YAML does not parse: %v", err)
			}
			if doc.Size != 76 || len(doc.Fields) != 3 {
				t.Fatalf("doc = %+v", doc)
			}
			if doc.Fields[0].Value != "porch-light" || doc.Fields[0].Offset != 4 {
				t.Errorf("name field = %+v", doc.Fields[0])
			}
			if doc.Fields[1].Value != tt.wantPass || doc.Fields[1].Offset != 37 {
				t.Errorf("password field = %+v", doc.Fields[1])
			}
			if doc.Fields[2].Offset != 70 || doc.Fields[2].Kind != "text" {
				t.Errorf("port field = %+v", doc.Fields[2])
			}
		})
	}
}
