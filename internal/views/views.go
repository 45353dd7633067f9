// Package views loads and shapes the data behind each page. Every loader
// takes the user's email explicitly.
package views

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"
)

// FirstYear is the earliest year offered by the month picker.
const FirstYear = 2025

type (
	DailyView struct {
		Date     core.Date
		Records  []core.ExpenseRecord
		Rejected []core.RecordError
		Total    core.Money
	}

	MonthlyView struct {
		core.MonthSummary
		Records  []core.ExpenseRecord
		Rejected []core.RecordError
	}

	AllView struct {
		Grouping core.Grouping
		Rejected []core.RecordError
	}

	HomeView struct {
		Today   DailyView
		Month   MonthlyView
		Loaded  time.Time
		Skipped int
	}
)

// Service builds views from an expense reader.
type Service struct {
	reader ledger.ExpenseReader
	logger *applog.Logger
}

func NewService(reader ledger.ExpenseReader, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard(applog.ComponentExpense)
	}
	return &Service{reader: reader, logger: logger.WithComponent(applog.ComponentExpense)}
}

// Daily returns the user's expenses on day with their total.
func (s *Service) Daily(ctx context.Context, email string, day core.Date) (DailyView, error) {
	if err := requireEmail(email); err != nil {
		return DailyView{}, err
	}
	batch, err := s.reader.ListByDay(ctx, email, day)
	if err != nil {
		return DailyView{}, fmt.Errorf("load expenses for %s: %w", core.EncodeDate(day), err)
	}
	return DailyView{
		Date:     day,
		Records:  batch.Records,
		Rejected: batch.Rejected,
		Total:    core.TotalAmount(batch.Records),
	}, nil
}

// Monthly returns the user's expenses in year/month bucketed by day.
func (s *Service) Monthly(ctx context.Context, email string, year, month int) (MonthlyView, error) {
	if err := requireEmail(email); err != nil {
		return MonthlyView{}, err
	}
	if month < 1 || month > 12 {
		return MonthlyView{}, fmt.Errorf("invalid month %d", month)
	}
	batch, err := s.reader.ListByMonth(ctx, email, year, month)
	if err != nil {
		return MonthlyView{}, fmt.Errorf("load expenses for %d-%02d: %w", year, month, err)
	}
	return MonthlyView{
		MonthSummary: core.SummarizeMonth(year, month, batch.Records),
		Records:      batch.Records,
		Rejected:     batch.Rejected,
	}, nil
}

// All returns every expense of the user grouped by year and month.
func (s *Service) All(ctx context.Context, email string) (AllView, error) {
	if err := requireEmail(email); err != nil {
		return AllView{}, err
	}
	batch, err := s.reader.ListByUser(ctx, email)
	if err != nil {
		return AllView{}, fmt.Errorf("load expenses: %w", err)
	}
	return AllView{Grouping: core.GroupByYearAndMonth(batch.Records), Rejected: batch.Rejected}, nil
}

// Home loads today's and this month's expenses concurrently.
func (s *Service) Home(ctx context.Context, email string, today core.Date) (HomeView, error) {
	var home HomeView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.Daily(gctx, email, today)
		home.Today = v
		return err
	})
	g.Go(func() error {
		v, err := s.Monthly(gctx, email, today.Year(), today.Month())
		home.Month = v
		return err
	})
	if err := g.Wait(); err != nil {
		return HomeView{}, err
	}
	home.Loaded = time.Now()
	home.Skipped = len(home.Today.Rejected) + len(home.Month.Rejected)
	if home.Skipped > 0 {
		s.logger.WarnContext(ctx, "Home view skipped malformed records",
			applog.FieldUserEmail, email, applog.FieldCount, home.Skipped)
	}
	return home, nil
}

// YearOptions lists the years the month picker offers: FirstYear through
// five years after now.
func YearOptions(now time.Time) []int {
	last := now.Year() + 5
	if last < FirstYear {
		last = FirstYear
	}
	years := make([]int, 0, last-FirstYear+1)
	for y := FirstYear; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// MonthOption is one entry of the month picker.
type MonthOption struct {
	Number int
	Name   string
}

// MonthOptions lists January through December.
func MonthOptions() []MonthOption {
	out := make([]MonthOption, 12)
	for i := range out {
		out[i] = MonthOption{Number: i + 1, Name: time.Month(i + 1).String()}
	}
	return out
}

func requireEmail(email string) error {
	if email == "" {
		return core.ErrEmptyEmail
	}
	return nil
}
