// Package groups serves the bible study group API: browsing for everyone
// signed in, create/update/delete for admins and leaders, join/leave for any
// member.
package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	groupstore "github.com/iliyababin/youthscc/internal/app/store/groups"
	"github.com/iliyababin/youthscc/internal/app/system/auditlog"
	sysauth "github.com/iliyababin/youthscc/internal/app/system/auth"
	"github.com/iliyababin/youthscc/internal/app/system/htmlsanitize"
	"github.com/iliyababin/youthscc/internal/app/system/httpjson"
	"github.com/iliyababin/youthscc/internal/app/system/inputval"
	"github.com/iliyababin/youthscc/internal/app/system/timeouts"
	"github.com/iliyababin/youthscc/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Service *Service
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

type meetingTimeRequest struct {
	DayOfWeek string `json:"dayOfWeek"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
}

type groupRequest struct {
	Name         string               `json:"name" validate:"required,max=200" label:"Name"`
	Description  string               `json:"description" validate:"max=2000" label:"Description"`
	Location     string               `json:"location" validate:"max=500" label:"Location"`
	LeaderIDs    []string             `json:"leaderIds"`
	MeetingTimes []meetingTimeRequest `json:"meetingTimes"`
}

type meetingTimeView struct {
	DayOfWeek string `json:"dayOfWeek"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Display   string `json:"display"`
}

type groupView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Location     string            `json:"location"`
	Leaders      []models.Leader   `json:"leaders"`
	MeetingTimes []meetingTimeView `json:"meetingTimes"`
	Members      []models.Member   `json:"members"`
	MemberCount  int               `json:"memberCount"`
	IsMember     bool              `json:"isMember"`
}

func viewOf(g models.BibleStudyGroup, viewer primitive.ObjectID) groupView {
	times := make([]meetingTimeView, 0, len(g.MeetingTimes))
	for _, mt := range g.MeetingTimes {
		times = append(times, meetingTimeView{
			DayOfWeek: mt.DayOfWeek,
			Hour:      mt.Hour,
			Minute:    mt.Minute,
			Display:   mt.Format(),
		})
	}
	members := g.Members
	if members == nil {
		members = []models.Member{}
	}
	leaders := g.Leaders
	if leaders == nil {
		leaders = []models.Leader{}
	}
	return groupView{
		ID:           g.ID.Hex(),
		Name:         g.Name,
		Description:  g.Description,
		Location:     g.Location,
		Leaders:      leaders,
		MeetingTimes: times,
		Members:      members,
		MemberCount:  len(members),
		IsMember:     g.HasMember(viewer),
	}
}

// parseGroup validates and sanitizes a group payload into model form.
// Returns a user-presentable message when the payload is rejected.
func (h *Handler) parseGroup(ctx context.Context, req groupRequest) (models.BibleStudyGroup, string) {
	if res := inputval.Struct(req); res.HasErrors() {
		return models.BibleStudyGroup{}, res.First()
	}
	if len(req.MeetingTimes) == 0 {
		return models.BibleStudyGroup{}, "At least one meeting time is required"
	}

	times := make([]models.MeetingTime, 0, len(req.MeetingTimes))
	for _, mt := range req.MeetingTimes {
		m := models.MeetingTime{DayOfWeek: mt.DayOfWeek, Hour: mt.Hour, Minute: mt.Minute}
		if !m.Valid() {
			return models.BibleStudyGroup{}, "Meeting times need a valid day, hour and quarter-hour minute"
		}
		times = append(times, m)
	}

	leaders, err := h.Service.ResolveLeaders(ctx, req.LeaderIDs)
	if err != nil {
		h.Log.Error("resolve leaders", zap.Error(err))
		return models.BibleStudyGroup{}, "Something went wrong. Please try again."
	}

	return models.BibleStudyGroup{
		Name:         htmlsanitize.Clean(req.Name),
		Description:  htmlsanitize.Clean(req.Description),
		Location:     htmlsanitize.Clean(req.Location),
		Leaders:      leaders,
		MeetingTimes: times,
	}, ""
}

func viewerID(r *http.Request) primitive.ObjectID {
	su, ok := sysauth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func groupID(r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return oid, err == nil
}

// ServeList handles GET /api/groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	groups, err := h.Service.List(ctx)
	if err != nil {
		h.Log.Error("list groups", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	viewer := viewerID(r)
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, viewOf(g, viewer))
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"groups": views})
}

// ServeGroup handles GET /api/groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
			return
		}
		h.Log.Error("load group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}
	httpjson.Write(w, http.StatusOK, viewOf(*g, viewerID(r)))
}

// HandleCreate handles POST /api/groups. Admin or leader only (enforced by
// route middleware).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, msg := h.parseGroup(ctx, req)
	if msg != "" {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, msg)
		return
	}

	created, err := h.Service.Create(ctx, g)
	if err != nil {
		h.Log.Error("create group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	su, _ := sysauth.CurrentUser(r)
	h.Audit.Record(r.Context(), auditlog.KindGroupCreated, su.ID, created.ID.Hex(),
		map[string]string{"name": created.Name})
	httpjson.Write(w, http.StatusCreated, viewOf(created, viewerID(r)))
}

// HandleUpdate handles PUT /api/groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
		return
	}

	var req groupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	g, msg := h.parseGroup(ctx, req)
	if msg != "" {
		httpjson.WriteError(w, httpjson.CodeInvalidArgument, msg)
		return
	}

	err := h.Service.Update(ctx, id, groupstore.Update{
		Name:         g.Name,
		Description:  g.Description,
		Location:     g.Location,
		Leaders:      g.Leaders,
		MeetingTimes: g.MeetingTimes,
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
			return
		}
		h.Log.Error("update group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	su, _ := sysauth.CurrentUser(r)
	h.Audit.Record(r.Context(), auditlog.KindGroupUpdated, su.ID, id.Hex(), nil)
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleDelete handles DELETE /api/groups/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Service.Delete(ctx, id); err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
			return
		}
		h.Log.Error("delete group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	su, _ := sysauth.CurrentUser(r)
	h.Audit.Record(r.Context(), auditlog.KindGroupDeleted, su.ID, id.Hex(), nil)
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleJoin handles POST /api/groups/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
		return
	}
	uid := viewerID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	joined, err := h.Service.Join(ctx, id, uid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
			return
		}
		h.Log.Error("join group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	if joined {
		su, _ := sysauth.CurrentUser(r)
		h.Audit.Record(r.Context(), auditlog.KindGroupJoined, su.ID, id.Hex(), nil)
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"joined": joined})
}

// HandleLeave handles POST /api/groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := groupID(r)
	if !ok {
		httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
		return
	}
	uid := viewerID(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	removed, err := h.Service.Leave(ctx, id, uid)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.WriteError(w, httpjson.CodeNotFound, "Bible study group not found")
			return
		}
		h.Log.Error("leave group", zap.Error(err))
		httpjson.WriteError(w, httpjson.CodeInternal, "Something went wrong. Please try again.")
		return
	}

	if removed {
		su, _ := sysauth.CurrentUser(r)
		h.Audit.Record(r.Context(), auditlog.KindGroupLeft, su.ID, id.Hex(), nil)
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"left": removed})
}
