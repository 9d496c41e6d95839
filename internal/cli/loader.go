package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// LoadResult is the merged content of every bundle file found.
type LoadResult struct {
	Bundle    store.Bundle
	Files     []string
	FileCount int
}

// LoadError represents an error that occurred while reading bundle files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// bundleExts lists the file types LoadBundles reads. YAML files use the
// short field names (from, to, entity, ...); JSON and CUE files use the
// API field names (from_currency, entity_code, ...).
var bundleExts = map[string]bool{".yaml": true, ".yml": true, ".json": true, ".cue": true}

// LoadBundles reads every bundle file at the given paths. A directory
// contributes all bundle files below it, in lexical order. Lists from
// separate files are concatenated.
func LoadBundles(paths ...string) (*LoadResult, error) {
	var files []string
	for _, p := range paths {
		found, err := FindBundleFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no bundle files found"}
	}

	result := &LoadResult{Files: files, FileCount: len(files)}
	for _, f := range files {
		b, err := readBundle(f)
		if err != nil {
			return nil, err
		}
		merge(&result.Bundle, b)
	}
	return result, nil
}

// FindBundleFiles returns path itself when it is a file, else the bundle
// files below it.
func FindBundleFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && bundleExts[filepath.Ext(p)] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	sort.Strings(files)
	return files, nil
}

func readBundle(path string) (store.Bundle, error) {
	var b store.Bundle
	data, err := os.ReadFile(path)
	if err != nil {
		return b, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
			return b, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return b, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
		}
	case ".cue":
		return readCUEBundle(path, data)
	default:
		return b, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: unsupported file type", path)}
	}
	return b, nil
}

// readCUEBundle evaluates a CUE file and decodes the concrete result. CUE
// lets a bundle share values between entries and constrain them.
func readCUEBundle(path string, data []byte) (store.Bundle, error) {
	var b store.Bundle
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return b, cueLoadError(ErrCodeBuildFailed, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return b, cueLoadError(ErrCodeBuildFailed, err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return b, cueLoadError(ErrCodeBuildFailed, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return b, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return b, nil
}

func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
			le.Pos = positions[0]
		}
	}
	return le
}

func merge(dst *store.Bundle, src store.Bundle) {
	dst.Processes = append(dst.Processes, src.Processes...)
	dst.Entities = append(dst.Entities, src.Entities...)
	dst.Accounts = append(dst.Accounts, src.Accounts...)
	dst.Balances = append(dst.Balances, src.Balances...)
	dst.FXRates = append(dst.FXRates, src.FXRates...)
	dst.Rules = append(dst.Rules, src.Rules...)
	dst.Transactions = append(dst.Transactions, src.Transactions...)
}

// loadErrorCode returns the LoadError code of err, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
