package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/report"
)

// Request bodies. Amounts travel as decimal strings ("300", "12,50") so no
// float ever touches a stored value.
type (
	studentRequest struct {
		FirstName string `json:"first_name" validate:"required_without=LastName,max=100"`
		LastName  string `json:"last_name" validate:"max=100"`
	}

	inscriptionRequest struct {
		StudentID string `json:"student_id" validate:"required,max=64"`
		Type      string `json:"type" validate:"required,oneof=SOUTIEN FORMATION"`
		Amount    string `json:"amount" validate:"required"`
		Date      string `json:"date"`
	}

	paymentRequest struct {
		StudentID string `json:"student_id" validate:"required,max=64"`
		Amount    string `json:"amount" validate:"required"`
		Date      string `json:"date"`
		Note      string `json:"note" validate:"max=500"`
	}

	transactionRequest struct {
		Type        string `json:"type" validate:"required,oneof=INCOME EXPENSE"`
		Amount      string `json:"amount" validate:"required"`
		Category    string `json:"category" validate:"required,max=100"`
		Description string `json:"description" validate:"max=200"`
		Date        string `json:"date"`
	}
)

// createdResponse echoes a stored record in wire form.
type createdResponse struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	StudentID string     `json:"student_id,omitempty"`
	Amount    core.Money `json:"amount"`
	Date      string     `json:"date,omitempty"`
}

func (s *Server) logCreated(r *http.Request, kind, id string, amount core.Money) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordCreated(r.Context(), kind, id, amount.Cents)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	st, err := s.deps.Recorder.RecordStudent(r.Context(), core.Student{
		FirstName: sanitizeInput(req.FirstName),
		LastName:  sanitizeInput(req.LastName),
		CreatedAt: s.deps.Analytics.Now(),
	})
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.logCreated(r, "student", st.ID, core.Money{})
	writeJSON(w, http.StatusCreated, map[string]string{"id": st.ID, "kind": "student", "name": st.FullName()})
}

func (s *Server) handleCreateInscription(w http.ResponseWriter, r *http.Request) {
	var req inscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	amount, err := ParseAmount(req.Amount, true)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	at, err := ParseDate(req.Date, s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	ins, err := s.deps.Recorder.RecordInscription(r.Context(), core.Inscription{
		StudentID: strings.TrimSpace(req.StudentID),
		Type:      core.InscriptionType(req.Type),
		Amount:    amount,
		CreatedAt: at,
	})
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.logCreated(r, "inscription", ins.ID, ins.Amount)
	writeJSON(w, http.StatusCreated, createdResponse{
		ID: ins.ID, Kind: "inscription", StudentID: ins.StudentID, Amount: ins.Amount,
		Date: ins.CreatedAt.Format("2006-01-02"),
	})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	amount, err := ParseAmount(req.Amount, false)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	at, err := ParseDate(req.Date, s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	p, err := s.deps.Recorder.RecordPayment(r.Context(), core.Payment{
		StudentID: strings.TrimSpace(req.StudentID),
		Amount:    amount,
		Date:      at,
		Note:      sanitizeInput(req.Note),
	})
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.logCreated(r, "payment", p.ID, p.Amount)
	writeJSON(w, http.StatusCreated, createdResponse{
		ID: p.ID, Kind: "payment", StudentID: p.StudentID, Amount: p.Amount,
		Date: p.Date.Format("2006-01-02"),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	amount, err := ParseAmount(req.Amount, false)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	at, err := ParseDate(req.Date, s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	t, err := s.deps.Recorder.RecordTransaction(r.Context(), core.Transaction{
		Type:        core.TransactionType(req.Type),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        at,
	})
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	s.logCreated(r, "transaction", t.ID, t.Amount)
	writeJSON(w, http.StatusCreated, createdResponse{
		ID: t.ID, Kind: "transaction", Amount: t.Amount, Date: t.Date.Format("2006-01-02"),
	})
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	p, st, err := s.deps.Recorder.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, log.OpRender, err)
		return
	}
	rc := report.Receipt{School: s.deps.School, Payment: p, Student: st, Location: s.deps.Analytics.Location()}

	switch format := r.URL.Query().Get("format"); format {
	case "pdf":
		body, err := report.BuildReceiptPDF(rc, s.deps.Formatter)
		if err != nil {
			fail(w, r, log.OpRender, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `inline; filename="recu-`+p.ID+`.pdf"`)
		_, _ = w.Write(body)
	case "", "text":
		width := report.Width80mm
		if v := r.URL.Query().Get("width"); v != "" {
			if width, err = strconv.Atoi(v); err != nil {
				fail(w, r, log.OpRender, report.ErrReceiptWidth)
				return
			}
		}
		text, err := report.RenderReceiptText(rc, width, s.deps.Formatter)
		if err != nil {
			fail(w, r, log.OpRender, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	default:
		writeProblem(w, http.StatusBadRequest, "format must be text or pdf")
	}
}
