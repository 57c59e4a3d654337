package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/bbrprep/internal/core"
)

// DirLoader loads mapping tables from one directory. It implements
// core.MappingLoader. Tables are read fresh on every call so edits to the
// mapping files apply to the next run without a restart.
type DirLoader struct {
	Dir string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

// LoadMappings reads the code table, the column-name table and every
// vocabulary the definition names. A vocabulary file shared by several
// translations with the same key and value fields is read once.
func (l *DirLoader) LoadMappings(ctx context.Context, def core.Definition) (*core.Mappings, error) {
	codes, err := l.loadCodes(def.CodeTable, def.CodeTableSheet)
	if err != nil {
		return nil, err
	}

	rename, err := l.loadRename(def.ColumnNames)
	if err != nil {
		return nil, err
	}

	vocabs := make(map[string]core.VocabularyMap)
	translations := make([]core.Translation, 0, len(def.Translations))
	for _, spec := range def.Translations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cacheKey := strings.Join([]string{spec.File, spec.KeyField, spec.ValueField, string(spec.DelimiterRune())}, "\x00")
		vocab, ok := vocabs[cacheKey]
		if !ok {
			vocab, err = l.loadVocabulary(spec)
			if err != nil {
				return nil, err
			}
			vocabs[cacheKey] = vocab
		}

		translations = append(translations, core.Translation{
			Column:     spec.Column,
			From:       spec.From,
			Vocabulary: vocab,
		})
	}

	slog.Debug("mapping tables read",
		"dir", l.Dir,
		"code_attributes", len(codes.Attributes()),
		"vocabulary_files", len(vocabs),
	)

	return &core.Mappings{
		Definition:   def,
		Codes:        codes,
		Rename:       rename,
		Translations: translations,
	}, nil
}

func (l *DirLoader) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.Dir, name)
}

// loadCodes reads the code table from an .xlsx sheet or a .csv file.
func (l *DirLoader) loadCodes(name, sheet string) (*core.CodeIndex, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		header, rows, err = ReadSheet(l.path(name), sheet)
	default:
		header, rows, err = l.readDelimited(name, ',')
	}
	if err != nil {
		return nil, fmt.Errorf("open mapping %s: %w", name, err)
	}

	raw, err := core.ParseCodeTable(header, rows)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", name, err)
	}
	return core.NewCodeIndex(core.ExplodeCodeRows(raw)), nil
}

func (l *DirLoader) loadRename(name string) (core.RenameMap, error) {
	header, rows, err := l.readDelimited(name, ',')
	if err != nil {
		return nil, fmt.Errorf("open mapping %s: %w", name, err)
	}
	m, err := core.ParseRenameTable(header, rows)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", name, err)
	}
	return m, nil
}

func (l *DirLoader) loadVocabulary(spec core.TranslationSpec) (core.VocabularyMap, error) {
	header, rows, err := l.readDelimited(spec.File, spec.DelimiterRune())
	if err != nil {
		return nil, fmt.Errorf("open mapping %s: %w", spec.File, err)
	}
	vocab, err := core.ParseVocabulary(spec.File, header, rows, spec.KeyField, spec.ValueField)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", spec.File, err)
	}
	return vocab, nil
}

// readDelimited opens a mapping CSV. Mapping files are edited by hand in
// spreadsheet tools, so they get the same BOM and encoding repair as raw
// extracts.
func (l *DirLoader) readDelimited(name string, delimiter rune) ([]string, [][]string, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r, _ := core.WrapForStreaming(f, 0)
	return ReadCSV(r, delimiter)
}
