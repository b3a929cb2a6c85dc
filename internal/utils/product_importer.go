package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/shopspring/decimal"
)

// ImportResult summarizes a catalog import
type ImportResult struct {
	TotalRows int      `json:"totalRows"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Assigned  int      `json:"assigned"`
	Errors    []string `json:"errors"`
}

// ProductImporter loads catalog products from CSV through the catalog service,
// so every row gets the same validation and audit trail as the admin API.
type ProductImporter struct {
	catalog  services.CatalogService
	accounts repositories.AccountDirectory
}

// NewProductImporter creates a new ProductImporter
func NewProductImporter(catalog services.CatalogService, accounts repositories.AccountDirectory) *ProductImporter {
	return &ProductImporter{catalog: catalog, accounts: accounts}
}

type productColumns struct {
	code, title, description, premium, term, minSum, maxSum, agentEmail int
}

// Import reads a header row followed by one product per row. Rows whose code
// already exists are skipped; other bad rows are reported and skipped.
func (i *ProductImporter) Import(ctx context.Context, actor *models.Principal, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := productColumns{
		code:        findColumnIndex(header, []string{"Code", "Product Code"}),
		title:       findColumnIndex(header, []string{"Title", "Name", "Product Name"}),
		description: findColumnIndex(header, []string{"Description"}),
		premium:     findColumnIndex(header, []string{"Premium", "Monthly Premium", "Installment"}),
		term:        findColumnIndex(header, []string{"Term Months", "Term", "Months"}),
		minSum:      findColumnIndex(header, []string{"Min Sum Insured", "Sum Insured"}),
		maxSum:      findColumnIndex(header, []string{"Max Sum Insured"}),
		agentEmail:  findColumnIndex(header, []string{"Agent Email", "Agent"}),
	}
	for name, idx := range map[string]int{"code": cols.code, "title": cols.title, "premium": cols.premium, "term": cols.term} {
		if idx == -1 {
			return nil, fmt.Errorf("%s column not found in CSV", name)
		}
	}

	result := &ImportResult{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		req, err := cols.request(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		created, err := i.catalog.Create(ctx, actor, req)
		if apperr.Is(err, apperr.KindConflict) {
			result.Skipped++
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		result.Created++

		email := cell(row, cols.agentEmail)
		if email == "" {
			continue
		}
		if err := i.assign(ctx, actor, created.Data, email); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: product %s created but not assigned: %v", result.TotalRows, req.Code, err))
			continue
		}
		result.Assigned++
	}

	return result, nil
}

func (i *ProductImporter) assign(ctx context.Context, actor *models.Principal, product *models.PolicyProduct, email string) error {
	agents, err := i.accounts.For(models.RoleAgent)
	if err != nil {
		return err
	}
	agent, err := agents.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("no agent with email %s", email)
	}
	if err != nil {
		return err
	}
	_, err = i.catalog.AssignAgent(ctx, actor, product.ID, agent.ID)
	return err
}

func (c productColumns) request(row []string) (*models.CreateProductRequest, error) {
	premium, err := parseAmount(cell(row, c.premium))
	if err != nil {
		return nil, fmt.Errorf("invalid premium: %w", err)
	}
	term, err := strconv.Atoi(cell(row, c.term))
	if err != nil {
		return nil, fmt.Errorf("invalid term: %s", cell(row, c.term))
	}
	req := &models.CreateProductRequest{
		Code:        cell(row, c.code),
		Title:       cell(row, c.title),
		Description: cell(row, c.description),
		Premium:     premium,
		TermMonths:  term,
	}
	if raw := cell(row, c.minSum); raw != "" {
		if req.MinSumInsured, err = parseAmount(raw); err != nil {
			return nil, fmt.Errorf("invalid min sum insured: %w", err)
		}
	}
	if raw := cell(row, c.maxSum); raw != "" {
		maxSum, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid max sum insured: %w", err)
		}
		req.MaxSumInsured = &maxSum
	}
	return req, nil
}

// parseAmount accepts plain numbers with optional thousands separators
func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}

// cell returns the trimmed value at idx, or "" when the column is absent
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// findColumnIndex finds the index of a column in the header
func findColumnIndex(header []string, possibleNames []string) int {
	for i, column := range header {
		for _, name := range possibleNames {
			if strings.EqualFold(strings.TrimSpace(column), name) {
				return i
			}
		}
	}
	return -1
}
