package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
)

type markRequest struct {
	GroupID   string `json:"group_id" validate:"required,max=64"`
	StudentID string `json:"student_id" validate:"required,max=64"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

type attendanceResponse struct {
	Summary core.AttendanceSummary `json:"summary"`
	Sheet   core.AttendanceSheet   `json:"sheet"`
}

func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	status, err := core.ParseAttendanceStatus(req.Status)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	date, err := ParseDate(req.Date, s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	sheet, err := s.deps.Attendance.Mark(r.Context(), strings.TrimSpace(req.GroupID), strings.TrimSpace(req.StudentID), date, status)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	mp, err := ParseMonthParams(r.URL.Query(), s.deps.Analytics.Now())
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	sheet, err := s.deps.Attendance.Sheet(r.Context(), groupID, mp.Year, mp.Month)
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	sum, err := s.deps.Attendance.Summary(r.Context(), groupID, mp.Period(s.deps.Analytics.Location()))
	if err != nil {
		fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Summary: sum, Sheet: sheet})
}
