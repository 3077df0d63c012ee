package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/prlens/prlens/internal/repositories"
)

const (
	rulesSheet      = "Rules"
	statisticsSheet = "Statistics"
)

// ExportService writes extracted rules and their per-repository statistics to
// an Excel workbook
type ExportService struct {
	rules      *repositories.ExtractedRuleRepository
	statistics *repositories.RuleStatisticsRepository
}

func NewExportService(rules *repositories.ExtractedRuleRepository, statistics *repositories.RuleStatisticsRepository) *ExportService {
	return &ExportService{rules: rules, statistics: statistics}
}

// ExportRules writes a workbook with a Rules sheet filtered by the given
// filter and a Statistics sheet with every (rule, repository) pair
func (s *ExportService) ExportRules(w io.Writer, filter repositories.RuleFilter) error {
	rules, err := s.rules.List(filter)
	if err != nil {
		return fmt.Errorf("failed to list rules for export: %w", err)
	}
	statistics, err := s.statistics.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list rule statistics for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", rulesSheet)
	if _, err := f.NewSheet(statisticsSheet); err != nil {
		return err
	}

	ruleHeaders := []string{"ID", "Rule Text", "Category", "Severity", "Confidence", "Extractor", "Valid", "Created At"}
	for col, header := range ruleHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(rulesSheet, cell, header)
	}

	for row, rule := range rules {
		values := []interface{}{
			rule.ID, rule.RuleText, rule.Category, rule.Severity,
			rule.Confidence, rule.Extractor, rule.IsValid,
			rule.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(rulesSheet, cell, value)
		}
	}

	statHeaders := []string{"Rule ID", "Repository ID", "Occurrences", "Avg Confidence", "First Seen", "Last Seen"}
	for col, header := range statHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(statisticsSheet, cell, header)
	}

	for row, stat := range statistics {
		values := []interface{}{
			stat.RuleID, stat.RepositoryID, stat.OccurrenceCount, stat.AvgConfidence,
			stat.FirstSeen.Format("2006-01-02 15:04:05"),
			stat.LastSeen.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(statisticsSheet, cell, value)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write export workbook: %w", err)
	}
	return nil
}
