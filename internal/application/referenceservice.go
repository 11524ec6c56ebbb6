package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// ReferenceService reads the lookup sheets the form populates itself from:
// the countable-item catalog and the crew roster. Columns are resolved
// through the validated header map; a missing required column is a
// SchemaError, never a silently wrong index.
type ReferenceService struct {
	sheets       driven.SheetClient
	catalogSheet string
	rosterSheet  string
}

// NewReferenceService creates a ReferenceService over the named sheets.
func NewReferenceService(sheets driven.SheetClient, catalogSheet, rosterSheet string) *ReferenceService {
	return &ReferenceService{
		sheets:       sheets,
		catalogSheet: catalogSheet,
		rosterSheet:  rosterSheet,
	}
}

// Catalog returns the item list sorted by name. Rows missing either the PLU
// or the name are skipped; they are padding left behind by manual edits.
func (s *ReferenceService) Catalog(ctx context.Context) ([]model.CatalogItem, error) {
	header, rows, _, err := s.sheets.ReadRows(ctx, s.catalogSheet, nil)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if header.Len() == 0 {
		return []model.CatalogItem{}, nil
	}

	if err := header.Require(ColPLU, ColItemName); err != nil {
		return nil, decorateSchemaError(err, s.catalogSheet)
	}
	pluIdx, _ := header.Index(ColPLU)
	nameIdx, _ := header.Index(ColItemName)

	items := make([]model.CatalogItem, 0, len(rows))
	for _, row := range rows {
		item := model.CatalogItem{
			PLU:  strings.TrimSpace(row.Cell(pluIdx)),
			Name: strings.TrimSpace(row.Cell(nameIdx)),
		}
		if item.PLU == "" || item.Name == "" {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Roster column names. NIK and Nama are required; the rest are optional and
// come back empty when the sheet does not carry them.
const (
	colNIK   = "NIK"
	colName  = "Nama"
	colRole  = "Jabatan"
	colRDate = "Tanggal"
	colPhone = "No Handphone"
)

// Roster returns the crew roster. Rows without both a NIK and a name are
// skipped.
func (s *ReferenceService) Roster(ctx context.Context) ([]model.CrewMember, error) {
	header, rows, _, err := s.sheets.ReadRows(ctx, s.rosterSheet, nil)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	if header.Len() == 0 {
		return []model.CrewMember{}, nil
	}

	if err := header.Require(colNIK, colName); err != nil {
		return nil, decorateSchemaError(err, s.rosterSheet)
	}
	nikIdx, _ := header.Index(colNIK)
	nameIdx, _ := header.Index(colName)
	roleIdx, hasRole := header.Index(colRole)
	dateIdx, hasDate := header.Index(colRDate)
	shiftIdx, hasShift := header.Index(ColShift)
	phoneIdx, hasPhone := header.Index(colPhone)

	members := make([]model.CrewMember, 0, len(rows))
	for _, row := range rows {
		m := model.CrewMember{
			NIK:  strings.TrimSpace(row.Cell(nikIdx)),
			Name: strings.TrimSpace(row.Cell(nameIdx)),
		}
		if m.NIK == "" || m.Name == "" {
			continue
		}
		if hasRole {
			m.Role = strings.TrimSpace(row.Cell(roleIdx))
		}
		if hasDate {
			m.Date = strings.TrimSpace(row.Cell(dateIdx))
		}
		if hasShift {
			m.Shift = strings.TrimSpace(row.Cell(shiftIdx))
		}
		if hasPhone {
			m.Phone = strings.TrimSpace(row.Cell(phoneIdx))
		}
		members = append(members, m)
	}

	return members, nil
}

// decorateSchemaError stamps the sheet name onto a SchemaError for the
// operator-facing message.
func decorateSchemaError(err error, sheet string) error {
	var schemaErr *model.SchemaError
	if errors.As(err, &schemaErr) {
		schemaErr.Sheet = sheet
	}
	return err
}
