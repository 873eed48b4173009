package packer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/minios-linux/strpack/config"
	"github.com/minios-linux/strpack/ids"
	"github.com/minios-linux/strpack/locale"
	"github.com/minios-linux/strpack/lockfile"
	"github.com/minios-linux/strpack/stringpack"
	"github.com/minios-linux/strpack/translation"
)

// ---------------------------------------------------------------------------
// Planning
// ---------------------------------------------------------------------------

var czechSlovak = []string{
	"sp/app_src_main_res/values-cs/strings.xml",
	"sp/app_src_main_res/values-sk/strings.xml",
	"sp/coreui_src_main_res/values-cs/strings.xml",
	"sp/coreui_src_main_res/values-sk/strings.xml",
}

func newConfig(languages ...string) *config.File {
	return &config.File{
		LanguagesToPack: languages,
		AssetsDir:       "app/src/main/assets/",
	}
}

func TestGroupByPackID(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		mapping   map[string]string
		files     []string
		want      map[string][]string
	}{
		{
			name:      "without mapping",
			languages: []string{"*"},
			files:     czechSlovak,
			want: map[string][]string{
				"cs": {czechSlovak[0], czechSlovak[2]},
				"sk": {czechSlovak[1], czechSlovak[3]},
			},
		},
		{
			name:      "with mapping",
			languages: []string{"*"},
			mapping:   map[string]string{"sk": "cs"},
			files:     czechSlovak,
			want:      map[string][]string{"cs": czechSlovak},
		},
		{
			name:      "two languages with mapping",
			languages: []string{"*"},
			mapping:   map[string]string{"sk": "cs"},
			files: []string{
				"sp/app_src_main_res/values-sk/strings.xml",
				"sp/app_src_main_res/values-zh-rCN/strings.xml",
				"sp/coreui_src_main_res/values-sk/strings.xml",
				"sp/coreui_src_main_res/values-zh-rCN/strings.xml",
			},
			want: map[string][]string{
				"cs": {
					"sp/app_src_main_res/values-sk/strings.xml",
					"sp/coreui_src_main_res/values-sk/strings.xml",
				},
				"zh-rCN": {
					"sp/app_src_main_res/values-zh-rCN/strings.xml",
					"sp/coreui_src_main_res/values-zh-rCN/strings.xml",
				},
			},
		},
		{
			name:      "custom languages without mapping",
			languages: []string{"cs"},
			files:     czechSlovak,
			want:      map[string][]string{"cs": {czechSlovak[0], czechSlovak[2]}},
		},
		{
			name:      "empty languages",
			languages: []string{},
			files:     czechSlovak,
			want:      map[string][]string{},
		},
		{
			name:      "non-language qualifiers are kept",
			languages: []string{"*"},
			files:     []string{"sp/res/values-land/strings.xml", "sp/res/values-night/strings.xml"},
			want:      map[string][]string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newConfig(tc.languages...)
			cfg.PackIDMapping = tc.mapping
			got := GroupByPackID(cfg, tc.files)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("GroupByPackID() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGroupByPackIDDropsLanguages(t *testing.T) {
	cfg := newConfig("*")
	cfg.LanguagesToDrop = []string{"sk"}
	got := GroupByPackID(cfg, czechSlovak)
	if len(got) != 1 || len(got["cs"]) != 2 {
		t.Fatalf("GroupByPackID() = %v, want only cs", got)
	}
}

func TestDestPath(t *testing.T) {
	cfg := newConfig()
	if got := DestPath(cfg, "ca"); got != "app/src/main/assets/strings_ca.pack" {
		t.Errorf("DestPath() without module = %q", got)
	}
	cfg.Module = "module"
	if got := DestPath(cfg, "ca"); got != "app/src/main/assets/module_strings_ca.pack" {
		t.Errorf("DestPath() with module = %q", got)
	}
}

func TestPlanIsSorted(t *testing.T) {
	cfg := newConfig("*")
	jobs := Plan(cfg, []string{czechSlovak[3], czechSlovak[1], czechSlovak[2], czechSlovak[0]})
	if len(jobs) != 2 || jobs[0].PackID != "cs" || jobs[1].PackID != "sk" {
		t.Fatalf("Plan() = %+v", jobs)
	}
	if !reflect.DeepEqual(jobs[1].Inputs, []string{czechSlovak[1], czechSlovak[3]}) {
		t.Errorf("sk inputs = %v", jobs[1].Inputs)
	}
	if jobs[0].Dest != "app/src/main/assets/strings_cs.pack" {
		t.Errorf("cs dest = %q", jobs[0].Dest)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"app/src/main/string-packs/strings/values-ru/strings.xml",
		"app/src/main/string-packs/strings/values-cs/strings.xml",
		"app/src/main/string-packs/strings/values-cs/other.xml",
	} {
		writeFile(t, filepath.Join(root, rel), "<resources/>")
	}

	cfg, err := config.Parse([]byte(
		"resources_dirs: [app/src/main, lib/src/main]\nassets_dir: out\nstable_ids: ids.txt\n"), root)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	files, err := Discover(cfg)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join(root, "app/src/main/string-packs/strings/values-cs/strings.xml"),
		filepath.Join(root, "app/src/main/string-packs/strings/values-ru/strings.xml"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Discover() = %v, want %v", files, want)
	}
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

var testIDs = ids.Map{"hello": 0, "songs": 1}

const ruStrings = `<resources>
    <string name="hello">Привет</string>
    <string name="unknown">лишняя</string>
    <!-- min=2 -->
    <plurals name="songs">
        <item quantity="one">%d песня</item>
        <item quantity="few">%d песни</item>
        <item quantity="many">%d песен</item>
    </plurals>
</resources>`

func setupProject(t *testing.T) (root string, jobs []Job) {
	t.Helper()
	root = t.TempDir()
	res := filepath.Join(root, "res")
	writeFile(t, filepath.Join(res, "values-ru", "strings.xml"), ruStrings)
	writeFile(t, filepath.Join(res, "values-cs", "strings.xml"),
		`<resources><string name="hello">Ahoj</string></resources>`)
	writeFile(t, filepath.Join(res, "values-sk", "strings.xml"),
		`<resources><string name="hello">Ahoj!</string></resources>`)

	assets := filepath.Join(root, "assets")
	jobs = []Job{
		{
			PackID: "cs",
			Inputs: []string{
				filepath.Join(res, "values-cs", "strings.xml"),
				filepath.Join(res, "values-sk", "strings.xml"),
			},
			Dest: filepath.Join(assets, "strings_cs.pack"),
		},
		{
			PackID: "ru",
			Inputs: []string{filepath.Join(res, "values-ru", "strings.xml")},
			Dest:   filepath.Join(assets, "strings_ru.pack"),
		},
	}
	return root, jobs
}

func decodeFile(t *testing.T, path string) *translation.Dict {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	d, _, err := stringpack.Decode(data)
	if err != nil {
		t.Fatalf("Decode(%s): %v", path, err)
	}
	return d
}

func TestRunBuildsEveryPack(t *testing.T) {
	_, jobs := setupProject(t)

	var mu sync.Mutex
	var seen []string
	results := Run(context.Background(), jobs, Options{
		Resolver: testIDs,
		Exclude:  translation.Rules([]translation.Rule{{Comment: "min=2", Drop: []translation.Quantity{translation.One}}}),
		Workers:  2,
		OnResult: func(r Result) {
			mu.Lock()
			seen = append(seen, r.PackID)
			mu.Unlock()
		},
	})

	if len(results) != 2 || len(seen) != 2 {
		t.Fatalf("results = %d, callbacks = %d, want 2 each", len(results), len(seen))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("%s: %v", r.PackID, r.Err)
		}
		if r.PackID != jobs[i].PackID {
			t.Errorf("results[%d].PackID = %q, want job order", i, r.PackID)
		}
		if r.Size == 0 {
			t.Errorf("%s: size 0", r.PackID)
		}
	}

	cs := decodeFile(t, jobs[0].Dest)
	if got := cs.Locales(); !reflect.DeepEqual(got, []string{"cs", "sk"}) {
		t.Errorf("cs pack locales = %v", got)
	}

	ru := decodeFile(t, jobs[1].Dest)
	v, ok := ru.Get("ru", 1)
	if !ok {
		t.Fatal("ru pack misses songs")
	}
	want := translation.PluralValue(map[translation.Quantity]string{
		translation.Few:  "%d песни",
		translation.Many: "%d песен",
	})
	if !v.Equal(want) {
		t.Errorf("songs = %v, want %v", v, want)
	}
	// Cyrillic costs two bytes in either encoding; the ASCII placeholders
	// tip the balance to UTF-8.
	if results[1].Encoding != stringpack.UTF8 {
		t.Errorf("ru encoding = %v, want UTF-8", results[1].Encoding)
	}

	if len(results[1].Diagnostics) != 1 || !strings.Contains(results[1].Diagnostics[0], "unknown") {
		t.Errorf("ru diagnostics = %v", results[1].Diagnostics)
	}
	if len(results[0].Diagnostics) != 0 {
		t.Errorf("cs diagnostics = %v, want none", results[0].Diagnostics)
	}
}

func TestRunMissingInputIsEmptyLocale(t *testing.T) {
	root := t.TempDir()
	job := Job{
		PackID: "de",
		Inputs: []string{filepath.Join(root, "values-de", "strings.xml")},
		Dest:   filepath.Join(root, "out", "strings_de.pack"),
	}
	r := Build(job, Options{Resolver: testIDs})
	if r.Err != nil {
		t.Fatalf("Build: %v", r.Err)
	}
	d := decodeFile(t, job.Dest)
	if got := d.Locales(); !reflect.DeepEqual(got, []string{"de"}) {
		t.Errorf("locales = %v, want [de]", got)
	}
	if len(d.Entries("de")) != 0 {
		t.Errorf("de entries = %v, want none", d.Entries("de"))
	}
}

func TestRunFailureIsIsolated(t *testing.T) {
	root, jobs := setupProject(t)
	bad := Job{
		PackID: "land",
		Inputs: []string{filepath.Join(root, "res", "values-land", "strings.xml")},
		Dest:   filepath.Join(root, "assets", "strings_land.pack"),
	}
	jobs = append([]Job{bad}, jobs...)

	results := Run(context.Background(), jobs, Options{Resolver: testIDs, Workers: 1})
	if !errors.Is(results[0].Err, locale.ErrMalformedTag) {
		t.Fatalf("land error = %v, want ErrMalformedTag", results[0].Err)
	}
	if _, err := os.Stat(bad.Dest); !os.IsNotExist(err) {
		t.Errorf("failed job wrote %s", bad.Dest)
	}
	for _, r := range results[1:] {
		if r.Err != nil {
			t.Errorf("%s: %v", r.PackID, r.Err)
		}
	}
	if failed := Failed(results); len(failed) != 1 || failed[0].PackID != "land" {
		t.Errorf("Failed() = %+v", failed)
	}
}

func TestRunMalformedXML(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "values-fr", "strings.xml")
	writeFile(t, path, `<resources><string name="hello">x</resources>`)

	r := Build(Job{PackID: "fr", Inputs: []string{path}, Dest: filepath.Join(root, "fr.pack")}, Options{Resolver: testIDs})
	if r.Err == nil || !strings.Contains(r.Err.Error(), path) {
		t.Fatalf("Build error = %v, want parse error naming %s", r.Err, path)
	}
}

func TestRunCancelled(t *testing.T) {
	_, jobs := setupProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, r := range Run(ctx, jobs, Options{Resolver: testIDs}) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: err = %v, want context.Canceled", r.PackID, r.Err)
		}
	}
	if _, err := os.Stat(jobs[0].Dest); !os.IsNotExist(err) {
		t.Errorf("cancelled run wrote %s", jobs[0].Dest)
	}
}

func TestRunIncremental(t *testing.T) {
	root, jobs := setupProject(t)
	lock := lockfile.New(root)
	opts := Options{Resolver: testIDs, Lock: lock, Fingerprint: map[string]string{"@ids": "v1"}}

	for _, r := range Run(context.Background(), jobs, opts) {
		if r.Err != nil || r.Skipped {
			t.Fatalf("first run %s: skipped=%v err=%v", r.PackID, r.Skipped, r.Err)
		}
	}

	results := Run(context.Background(), jobs, opts)
	for _, r := range results {
		if !r.Skipped {
			t.Errorf("second run %s: not skipped", r.PackID)
		}
	}

	// Touching one input rebuilds only its pack.
	writeFile(t, jobs[1].Inputs[0], `<resources><string name="hello">Здравствуйте</string></resources>`)
	results = Run(context.Background(), jobs, opts)
	if !results[0].Skipped || results[1].Skipped {
		t.Errorf("after edit: cs skipped=%v ru skipped=%v", results[0].Skipped, results[1].Skipped)
	}

	// A changed fingerprint rebuilds everything.
	opts.Fingerprint = map[string]string{"@ids": "v2"}
	for _, r := range Run(context.Background(), jobs, opts) {
		if r.Skipped {
			t.Errorf("after fingerprint change %s: skipped", r.PackID)
		}
	}

	// Force ignores the lock; a deleted output is rebuilt.
	opts.Force = true
	if r := Build(jobs[0], opts); r.Skipped {
		t.Error("forced build skipped")
	}
	opts.Force = false
	if err := os.Remove(jobs[0].Dest); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r := Build(jobs[0], opts); r.Skipped || r.Err != nil {
		t.Errorf("missing output: skipped=%v err=%v", r.Skipped, r.Err)
	}
}

func TestBuildRequiresResolver(t *testing.T) {
	if r := Build(Job{PackID: "x"}, Options{}); r.Err == nil {
		t.Fatal("Build without resolver should fail")
	}
}

func TestWriteAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.pack")
	for _, content := range []string{"first", "second"} {
		if err := writeAtomic(path, []byte(content)); err != nil {
			t.Fatalf("writeAtomic: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "second" {
		t.Fatalf("content = %q, %v", data, err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover temp files: %v", entries)
	}
}
