package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/services"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	source, err := services.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		fail(w, r, log.OpAggregate, err)
		return
	}
	p, err := ParsePeriodParams(r.URL.Query(), s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpAggregate, err)
		return
	}
	a, err := s.deps.Analytics.GetAnalytics(r.Context(), source, p)
	if err != nil {
		fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Analytics.Dashboard(r.Context(), s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type reconciliationResponse struct {
	core.Reconciliation
	Students []core.StudentBalance `json:"students,omitempty"`
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query(), s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpReconcile, err)
		return
	}
	p := mp.Period(s.deps.Analytics.Location())
	rec, err := s.deps.Analytics.Reconciliation(r.Context(), p)
	if err != nil {
		fail(w, r, log.OpReconcile, err)
		return
	}
	resp := reconciliationResponse{Reconciliation: rec}
	if r.URL.Query().Get("students") == "1" {
		if resp.Students, err = s.deps.Analytics.StudentBalances(r.Context(), p); err != nil {
			fail(w, r, log.OpReconcile, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Analytics.Payroll(r.Context())
	if err != nil {
		fail(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// dashboardView is what templates/dashboard.html renders.
type dashboardView struct {
	School string
	Failed bool
	Month  string
	Cards  []dashboardCard
	Status core.ReconciliationStatus
	Gap    string
}

type dashboardCard struct {
	Label string
	Value string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	view := dashboardView{School: s.deps.School}
	d, err := s.deps.Analytics.Dashboard(r.Context(), s.deps.Analytics.Now())
	if err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Dashboard load failed", err, log.ComponentHTTP, log.OpAggregate, nil)
		view.Failed = true
	} else {
		f := s.deps.Formatter
		view.Month = d.Month.Label()
		view.Status = d.Reconciliation.Status
		view.Gap = f.Money(d.Reconciliation.Difference)
		view.Cards = []dashboardCard{
			{"Inscriptions du jour", f.Count(d.InscriptionsToday.Count)},
			{"Inscriptions du mois", f.Count(d.InscriptionsMonth.Count)},
			{"Soutien (mois)", f.Money(d.InscriptionsMonth.Bucket(string(core.InscriptionSoutien)).Total)},
			{"Formation (mois)", f.Money(d.InscriptionsMonth.Bucket(string(core.InscriptionFormation)).Total)},
			{"Paiements du jour", f.Money(d.PaymentsToday.Total)},
			{"Paiements du mois", f.Money(d.PaymentsMonth.Total)},
			{"Recettes", f.Money(d.CashFlow.Income)},
			{"Dépenses", f.Money(d.CashFlow.Expense)},
			{"Solde", f.Money(d.CashFlow.Net)},
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", view); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err)
	}
}
