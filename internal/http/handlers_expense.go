package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/export"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"
	"kharcha/internal/views"
)

// ExportFilename is the download name of the spreadsheet export.
const ExportFilename = "kharcha-expenses.xlsx"

type (
	// expenseForm refills the add form after a failed submission.
	expenseForm struct {
		ItemName string
		Amount   string
		Date     string
		Return   string
	}

	homeData struct {
		Home     views.HomeView
		Greeting string
		Form     expenseForm
	}

	dailyData struct {
		Day  views.DailyView
		Form expenseForm
	}

	monthlyData struct {
		Month  views.MonthlyView
		Years  []int
		Months []views.MonthOption
	}

	allData struct {
		All views.AllView
	}
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.renderHome(w, r, id, http.StatusOK, "", expenseForm{})
}

func (s *Server) renderHome(w http.ResponseWriter, r *http.Request, id auth.Identity, status int, errMsg string, form expenseForm) {
	today := s.today()
	home, err := s.views.Home(r.Context(), id.Email, today)
	if err != nil {
		s.loadFailed(w, r, "home", err)
		return
	}
	if form.Date == "" {
		form.Date = core.FormatISODate(today)
	}
	form.Return = "/home"
	s.render(w, r, status, "home.html", page{
		Title:  "Home",
		Active: "home",
		Error:  errMsg,
		Notice: r.URL.Query().Get("notice"),
		Data:   homeData{Home: home, Greeting: id.Greeting(), Form: form},
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	day, err := ParseDayParam(r.URL.Query(), s.today())
	if err != nil {
		BadRequestError("Invalid date").Write(w)
		return
	}
	s.renderDaily(w, r, id, day, http.StatusOK, "", expenseForm{})
}

func (s *Server) renderDaily(w http.ResponseWriter, r *http.Request, id auth.Identity, day core.Date, status int, errMsg string, form expenseForm) {
	v, err := s.views.Daily(r.Context(), id.Email, day)
	if err != nil {
		s.loadFailed(w, r, "daily", err)
		return
	}
	if form.Date == "" {
		form.Date = core.FormatISODate(day)
	}
	form.Return = "/daily?date=" + core.FormatISODate(day)
	s.render(w, r, status, "daily.html", page{
		Title:  "Daily",
		Active: "daily",
		Error:  errMsg,
		Notice: r.URL.Query().Get("notice"),
		Data:   dailyData{Day: v, Form: form},
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	params := ParseMonthParams(r.URL.Query(), s.today())
	v, err := s.views.Monthly(r.Context(), id.Email, params.Year, params.Month)
	if err != nil {
		s.loadFailed(w, r, "monthly", err)
		return
	}
	s.render(w, r, http.StatusOK, "monthly.html", page{
		Title:  "Monthly",
		Active: "monthly",
		Notice: r.URL.Query().Get("notice"),
		Data: monthlyData{
			Month:  v,
			Years:  views.YearOptions(s.now()),
			Months: views.MonthOptions(),
		},
	})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	v, err := s.views.All(r.Context(), id.Email)
	if err != nil {
		s.loadFailed(w, r, "all", err)
		return
	}
	s.render(w, r, http.StatusOK, "all.html", page{
		Title:  "All expenses",
		Active: "all",
		Notice: r.URL.Query().Get("notice"),
		Data:   allData{All: v},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	v, err := s.views.All(r.Context(), id.Email)
	if err != nil {
		s.loadFailed(w, r, "export", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteGroupingXLSX(&buf, v.Grouping); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Export failed", err, applog.OpExport, nil)
		InternalServerError("Export failed").Write(w)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	ret := safeReturn(r.PostFormValue("return"), "/home")

	e, err := ParseExpenseForm(r.PostForm, id.Email)
	if err != nil {
		form := expenseForm{
			ItemName: r.PostFormValue("itemName"),
			Amount:   r.PostFormValue("amount"),
			Date:     r.PostFormValue("date"),
		}
		msg := userMessage(err)
		if strings.HasPrefix(ret, "/daily") {
			day, derr := ParseDayParam(queryOf(ret), s.today())
			if derr != nil {
				day = s.today()
			}
			s.renderDaily(w, r, id, day, http.StatusUnprocessableEntity, msg, form)
			return
		}
		s.renderHome(w, r, id, http.StatusUnprocessableEntity, msg, form)
		return
	}

	newID, err := s.store.Add(r.Context(), e)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to add expense", err, applog.OpCreate,
				applog.NewFields().WithExpense(e))
		InternalServerError("The expense could not be saved. Please try again.").Write(w)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogExpenseCreated(r.Context(), newID, e)

	NewResponse().
		TriggerExpenseCreated(e.Date).
		RedirectTo(withNotice(ret, "notice", "Expense added")).
		WriteFor(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	expenseID := strings.TrimSpace(r.PathValue("id"))
	if expenseID == "" {
		BadRequestError("Missing expense id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	ret := safeReturn(r.PostFormValue("return"), "/home")

	owned, err := s.ownsExpense(r.Context(), id.Email, expenseID)
	if err != nil {
		s.loadFailed(w, r, "delete", err)
		return
	}
	if !owned {
		s.logger.WarnContext(r.Context(), "Delete of expense not owned by user",
			applog.FieldExpenseID, expenseID, applog.FieldUserEmail, id.Email)
		NotFoundError("Expense not found").Write(w)
		return
	}

	if err := s.store.Delete(r.Context(), expenseID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			NotFoundError("Expense not found").Write(w)
			return
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to delete expense", err, applog.OpDelete,
				applog.LogFields{applog.FieldExpenseID: expenseID})
		InternalServerError("The expense could not be deleted. Please try again.").Write(w)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogExpenseDeleted(r.Context(), expenseID)

	NewResponse().
		TriggerExpenseDeleted(expenseID).
		RedirectTo(withNotice(ret, "notice", "Expense deleted")).
		WriteFor(w, r)
}

// ownsExpense reports whether expenseID is among the user's records.
func (s *Server) ownsExpense(ctx context.Context, email, expenseID string) (bool, error) {
	batch, err := s.store.ListByUser(ctx, email)
	if err != nil {
		return false, err
	}
	for _, rec := range batch.Records {
		if rec.ID == expenseID {
			return true, nil
		}
	}
	return false, nil
}

// loadFailed reports a backend failure while building a page.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, view string, err error) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), "Failed to load expenses", err, applog.OpRead,
			applog.LogFields{"view": view})
	NewResponse().
		Status(http.StatusBadGateway).
		BodyHTML(`<div class="error">Your expenses could not be loaded. Please try again.</div>`).
		Write(w)
}
