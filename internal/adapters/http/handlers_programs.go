package web

import (
	"errors"
	"net/http"
	"strconv"

	"coachdesk/internal/application/orchestrators"
	"coachdesk/internal/application/projections"
	"coachdesk/internal/domain/calendar"
	"coachdesk/internal/domain/program"
)

type createProgramRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Description   string `json:"description" validate:"max=4000"`
	ClientID      string `json:"client_id"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	DurationWeeks int    `json:"duration_weeks" validate:"required,min=1,max=52"`
}

type setDayRequest struct {
	Type  string  `json:"type" validate:"required,oneof=rest workout free"`
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

type exerciseRequest struct {
	Exercise    string  `json:"exercise" validate:"required,max=120"`
	Sets        int     `json:"sets" validate:"min=0"`
	Reps        int     `json:"reps" validate:"min=0"`
	RestSeconds int     `json:"rest_seconds" validate:"min=0"`
	Weight      float64 `json:"weight" validate:"min=0"`
	Notes       string  `json:"notes" validate:"max=2000"`
}

type moveExerciseRequest struct {
	To *int `json:"to" validate:"required,min=0"`
}

// dayResponse is one calendar date after an edit.
type dayResponse struct {
	ProgramID string                        `json:"program_id"`
	Date      string                        `json:"date"`
	Type      string                        `json:"type"`
	Notes     string                        `json:"notes,omitempty"`
	Exercises []calendar.ExerciseAssignment `json:"exercises"`
}

func newDayResponse(d calendar.Day) dayResponse {
	exercises := d.Exercises
	if exercises == nil {
		exercises = []calendar.ExerciseAssignment{}
	}
	return dayResponse{
		ProgramID: d.ProgramID,
		Date:      d.Date.Format(program.DateLayout),
		Type:      d.Type,
		Notes:     d.Notes,
		Exercises: exercises,
	}
}

func (e exerciseRequest) assignment() calendar.ExerciseAssignment {
	return calendar.ExerciseAssignment{
		Exercise:    e.Exercise,
		Sets:        e.Sets,
		Reps:        e.Reps,
		RestSeconds: e.RestSeconds,
		Weight:      e.Weight,
		Notes:       e.Notes,
	}
}

func (s *Server) calendarDeps() orchestrators.CalendarDeps {
	return orchestrators.CalendarDeps{Programs: s.stores.Programs, Days: s.stores.Calendar, Now: s.now}
}

// dayRef reads the program and date path values.
func dayRef(r *http.Request) (orchestrators.CalendarDayRef, error) {
	date, err := program.ParseDate(r.PathValue("date"))
	if err != nil {
		return orchestrators.CalendarDayRef{}, errors.New("date must be YYYY-MM-DD")
	}
	return orchestrators.CalendarDayRef{
		TrainerID: currentSession(r).AccountID,
		ProgramID: r.PathValue("id"),
		Date:      date,
	}, nil
}

func exerciseIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 {
		return 0, errors.New("index must be a non-negative integer")
	}
	return i, nil
}

// writeProgramError maps program and calendar failures. Another trainer's program is reported
// as not found so program IDs cannot be probed.
func writeProgramError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, program.ErrNotFound), errors.Is(err, program.ErrNotOwner):
		writeError(w, http.StatusNotFound, "not_found", "Program not found.")
	case errors.Is(err, orchestrators.ErrClientNotLinked):
		writeError(w, http.StatusConflict, "client_not_linked", err.Error())
	case errors.Is(err, calendar.ErrNotWorkoutDay):
		writeError(w, http.StatusConflict, "not_workout_day", err.Error())
	case errors.Is(err, calendar.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, "index_out_of_range", err.Error())
	case isProgramInputError(err):
		badRequest(w, err.Error())
	default:
		internalError(w, err)
	}
}

func isProgramInputError(err error) bool {
	for _, target := range []error{
		program.ErrEmptyName, program.ErrNameTooLong, program.ErrDescriptionLong,
		program.ErrMissingStartDate, program.ErrInvalidDuration, program.ErrDateOutOfRange,
		calendar.ErrInvalidType, calendar.ErrTooManyExercise, calendar.ErrEmptyExercise,
		calendar.ErrNegativeTarget, calendar.ErrNotesTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleCreateProgram handles POST /api/programs.
func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var req createProgramRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	start, err := program.ParseDate(req.StartDate)
	if err != nil {
		badRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	p, err := orchestrators.ExecuteCreateProgram(r.Context(), orchestrators.CreateProgramInput{
		TrainerID:     currentSession(r).AccountID,
		ClientID:      req.ClientID,
		Name:          req.Name,
		Description:   req.Description,
		StartDate:     start,
		DurationWeeks: req.DurationWeeks,
	}, orchestrators.CreateProgramDeps{
		Programs:      s.stores.Programs,
		Relationships: s.stores.Relationships,
		GenerateID:    s.generateID,
		Now:           s.now,
	})
	if err != nil {
		writeProgramError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":             p.ID,
		"name":           p.Name,
		"client_id":      p.ClientID,
		"start_date":     p.StartDate.Format(program.DateLayout),
		"end_date":       p.EndDate().Format(program.DateLayout),
		"duration_weeks": p.DurationWeeks,
	})
}

// handleListPrograms handles GET /api/programs. Trainers see programs they own, clients the ones assigned to them.
func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	res, err := projections.QueryGetProgramList(r.Context(), projections.GetProgramListQuery{
		AccountID: sess.AccountID,
		Role:      sess.Role,
	}, projections.GetProgramCalendarDeps{Programs: s.stores.Programs, Days: s.stores.Calendar})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetCalendar handles GET /api/programs/{id}/calendar for the owner or the assigned client.
func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryGetProgramCalendar(r.Context(), projections.GetProgramCalendarQuery{
		ViewerID:  currentSession(r).AccountID,
		ProgramID: r.PathValue("id"),
	}, projections.GetProgramCalendarDeps{Programs: s.stores.Programs, Days: s.stores.Calendar})
	if err != nil {
		writeProgramError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSetDay handles PUT /api/programs/{id}/days/{date}.
func (s *Server) handleSetDay(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req setDayRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteSetCalendarDay(r.Context(), orchestrators.SetCalendarDayInput{
		CalendarDayRef: ref,
		Type:           req.Type,
		Notes:          req.Notes,
	}, s.calendarDeps())
	writeDayResult(w, day, err)
}

// handleClearDay handles DELETE /api/programs/{id}/days/{date}.
func (s *Server) handleClearDay(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteClearCalendarDay(r.Context(), ref, s.calendarDeps())
	writeDayResult(w, day, err)
}

// handleAddExercise handles POST /api/programs/{id}/days/{date}/exercises.
func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req exerciseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteAddExercise(r.Context(), orchestrators.ExerciseInput{
		CalendarDayRef: ref,
		Exercise:       req.assignment(),
	}, s.calendarDeps())
	if err != nil {
		writeProgramError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDayResponse(day))
}

// handleUpdateExercise handles PUT /api/programs/{id}/days/{date}/exercises/{index}.
func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	index, err := exerciseIndex(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req exerciseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteUpdateExercise(r.Context(), orchestrators.ExerciseInput{
		CalendarDayRef: ref,
		Index:          index,
		Exercise:       req.assignment(),
	}, s.calendarDeps())
	writeDayResult(w, day, err)
}

// handleRemoveExercise handles DELETE /api/programs/{id}/days/{date}/exercises/{index}.
func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	index, err := exerciseIndex(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteRemoveExercise(r.Context(), orchestrators.RemoveExerciseInput{
		CalendarDayRef: ref,
		Index:          index,
	}, s.calendarDeps())
	writeDayResult(w, day, err)
}

// handleMoveExercise handles POST /api/programs/{id}/days/{date}/exercises/{index}/move.
func (s *Server) handleMoveExercise(w http.ResponseWriter, r *http.Request) {
	ref, err := dayRef(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	from, err := exerciseIndex(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req moveExerciseRequest
	if err := decodeRequest(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := orchestrators.ExecuteMoveExercise(r.Context(), orchestrators.MoveExerciseInput{
		CalendarDayRef: ref,
		From:           from,
		To:             *req.To,
	}, s.calendarDeps())
	writeDayResult(w, day, err)
}

func writeDayResult(w http.ResponseWriter, day calendar.Day, err error) {
	if err != nil {
		writeProgramError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayResponse(day))
}
