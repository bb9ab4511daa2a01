package keycap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/nocap/pkg/engine"
)

// LoadFile applies the overrides in path on top of base. The format follows
// the extension: .toml files hold key = value pairs, .zy and .lisp files are
// parameter scripts.
func LoadFile(path string, base Params) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read parameters: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		p, err := DecodeTOML(string(data), base)
		if err != nil {
			return base, fmt.Errorf("load %s: %w", path, err)
		}
		return p, nil
	case ".zy", ".lisp":
		p, err := EvalScript(engine.NewEngine(), string(data), base)
		if err != nil {
			return base, fmt.Errorf("load %s: %w", path, err)
		}
		return p, nil
	default:
		return base, fmt.Errorf("load %s: unsupported parameter file type %q", path, filepath.Ext(path))
	}
}

// DecodeTOML applies TOML overrides on top of base. Keys that name no
// parameter are rejected.
func DecodeTOML(src string, base Params) (Params, error) {
	p := base
	md, err := toml.Decode(src, &p)
	if err != nil {
		return base, fmt.Errorf("decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return base, fmt.Errorf("unknown parameters: %s", strings.Join(keys, ", "))
	}
	return p, nil
}

// EvalScript runs a parameter script and applies its bindings on top of
// base.
func EvalScript(eng *engine.Engine, src string, base Params) (Params, error) {
	bindings, evalErrs, err := eng.Evaluate(src)
	if err != nil {
		return base, fmt.Errorf("evaluate script: %w", err)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return base, fmt.Errorf("script errors: %s", strings.Join(msgs, "; "))
	}
	p := base
	for _, b := range bindings {
		if err := p.Set(b.Name, b.Value); err != nil {
			return base, err
		}
	}
	return p, nil
}

// EncodeTOML writes p as a TOML parameter file.
func EncodeTOML(p Params) (string, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(p); err != nil {
		return "", fmt.Errorf("encode TOML: %w", err)
	}
	return sb.String(), nil
}
