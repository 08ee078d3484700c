// Package modules is the registry of strategy import modules. Each module
// pairs a stable identifier with the file extensions it reads, the options
// it accepts and its extraction routine.
package modules

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/common"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/errs"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/layout"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/pdftext"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/sheet"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-portfolio-tracker/internal/domain/import/tabular"
)

// ID identifies a strategy module.
type ID string

const (
	CapitalizoExcel ID = "capitalizo-excel"
	ClubeFIIPDF     ID = "clubefii-pdf"
)

// Option names an extraction option a module may accept.
type Option string

const (
	OptionPage         Option = "page"
	OptionEqualTargets Option = "equalTargets"
)

// Options are the per-call extraction settings. Nil fields are unset.
type Options struct {
	Page         *int  `json:"page,omitempty"`
	EqualTargets *bool `json:"equalTargets,omitempty"`
}

func (o Options) set() []Option {
	var out []Option
	if o.Page != nil {
		out = append(out, OptionPage)
	}
	if o.EqualTargets != nil {
		out = append(out, OptionEqualTargets)
	}
	return out
}

// File is an uploaded document.
type File struct {
	Name string
	Data []byte
}

// Extension returns the lower-case extension of the file name, dot included.
func (f File) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Extraction is the raw output of a module. Dropped counts candidate rows
// discarded for missing an asset or a percentage.
type Extraction struct {
	Rows    []common.ParsedRow
	Dropped int
}

type extractFunc func(ctx context.Context, f File, opts Options) (Extraction, error)

// Module describes one strategy parser.
type Module struct {
	ID                  ID
	Name                string
	SupportedExtensions []string
	AcceptedOptions     []Option

	extract extractFunc
}

var registry = []Module{
	{
		ID:                  CapitalizoExcel,
		Name:                "Capitalizo Investimentos – Excel",
		SupportedExtensions: []string{".xlsx", ".xls", ".csv"},
		extract:             extractSpreadsheet,
	},
	{
		ID:                  ClubeFIIPDF,
		Name:                "ClubeFII – PDF",
		SupportedExtensions: []string{".pdf"},
		AcceptedOptions:     []Option{OptionPage, OptionEqualTargets},
		extract:             extractPDF,
	},
}

// List returns the registered modules in a fixed order.
func List() []Module {
	return slices.Clone(registry)
}

// Lookup finds a module by identifier.
func Lookup(id string) (Module, bool) {
	for _, m := range registry {
		if string(m.ID) == id {
			return m, true
		}
	}
	return Module{}, false
}

// Supports reports whether the module reads files with the given name.
func (m Module) Supports(name string) bool {
	return slices.Contains(m.SupportedExtensions, File{Name: name}.Extension())
}

// ValidateOptions rejects options the module does not accept and
// out-of-range values.
func (m Module) ValidateOptions(opts Options) error {
	for _, o := range opts.set() {
		if !slices.Contains(m.AcceptedOptions, o) {
			return fmt.Errorf("%w: %q is not accepted by %s", errs.ErrInvalidOptions, o, m.ID)
		}
	}
	if opts.Page != nil && *opts.Page < 1 {
		return fmt.Errorf("%w: page must be 1 or greater", errs.ErrInvalidOptions)
	}
	return nil
}

// Extract checks the file extension and the options, then runs the module.
// Nothing is parsed when either check fails.
func (m Module) Extract(ctx context.Context, f File, opts Options) (Extraction, error) {
	if !m.Supports(f.Name) {
		return Extraction{}, fmt.Errorf("%w: %s does not read %q files (accepted: %s)",
			errs.ErrUnsupportedFormat, m.ID, f.Extension(), strings.Join(m.SupportedExtensions, ", "))
	}
	if err := m.ValidateOptions(opts); err != nil {
		return Extraction{}, err
	}
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	return m.extract(ctx, f, opts)
}

func extractSpreadsheet(_ context.Context, f File, _ Options) (Extraction, error) {
	grid, err := sheet.Decode(f.Extension(), f.Data)
	if err != nil {
		if errors.Is(err, sniffer.ErrEmptyFile) {
			return Extraction{}, errs.ErrNoSheetRows
		}
		return Extraction{}, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}

	res := tabular.Extract(grid)
	if len(res.Rows) == 0 {
		return Extraction{}, errs.ErrNoSheetRows
	}
	return Extraction{Rows: res.Rows, Dropped: res.Dropped}, nil
}

func extractPDF(_ context.Context, f File, opts Options) (Extraction, error) {
	pages, err := pdftext.Read(f.Data)
	if err != nil {
		return Extraction{}, err
	}

	lopts := layout.Options{EqualTargets: true}
	if opts.Page != nil {
		lopts.Page = *opts.Page
	}
	if opts.EqualTargets != nil {
		lopts.EqualTargets = *opts.EqualTargets
	}

	rows, err := layout.Extract(pages, lopts)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Rows: rows}, nil
}
