package definition

import (
	"os"
	"path/filepath"
	"testing"
)

const leaveYAML = `
domain: leave
version: "1"
navigation:
  label: Leave Management
  order: 3
  children:
    - label: Leave Type
      route: /leave/types
      screen_id: leave_type
screens:
  - id: leave_type
    title: Leave Type
    entity: leave_type
    resource:
      service_id: workforce
      list_op: listLeaveTypes
      create_op: createLeaveType
    pagination:
      mode: client
      page_size: 10
    columns:
      - key: sno
        label: "S.No"
      - key: leave_type
        label: Leave Type
    fields:
      - key: leave_type
        label: Leave Type
        kind: text
        required: true
`

func writeDefs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoader_LoadFile(t *testing.T) {
	dir := writeDefs(t, map[string]string{"leave.yaml": leaveYAML})
	path := filepath.Join(dir, "leave.yaml")

	def, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if def.Domain != "leave" {
		t.Errorf("Domain = %q, want leave", def.Domain)
	}
	if len(def.Screens) != 1 || def.Screens[0].ID != "leave_type" {
		t.Fatalf("Screens = %+v", def.Screens)
	}
	if def.Screens[0].Pagination.Mode != "client" {
		t.Errorf("Pagination.Mode = %q", def.Screens[0].Pagination.Mode)
	}
	if def.Checksum == "" {
		t.Error("Checksum not computed")
	}
	if def.SourceFile != path {
		t.Errorf("SourceFile = %q, want %q", def.SourceFile, path)
	}
}

func TestLoader_LoadAll(t *testing.T) {
	dir := writeDefs(t, map[string]string{
		"leave.yaml":  leaveYAML,
		"notes.txt":   "ignored",
		"other.yml":   "domain: org\nversion: \"1\"\n",
		"broken.yaml": "",
	})

	defs, err := NewLoader().LoadAll([]string{dir})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("loaded %d definitions, want 3 (txt skipped)", len(defs))
	}
}

func TestLoader_LoadAll_BadYAML(t *testing.T) {
	dir := writeDefs(t, map[string]string{"bad.yaml": "domain: [unclosed"})

	if _, err := NewLoader().LoadAll([]string{dir}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoader_LoadAll_MissingDir(t *testing.T) {
	if _, err := NewLoader().LoadAll([]string{"/does/not/exist"}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
