package api

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/sboagy/tunetrees-go/internal/feedback"
	"github.com/sboagy/tunetrees-go/internal/metrics"
	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/queue"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
)

// Handlers wires the queue, feedback, and preferences components to HTTP
// verbs, translating between the wire DTOs and the domain packages'
// request/result shapes.
type Handlers struct {
	repos    repository.Manager
	queue    *queue.Store
	feedback *feedback.Pipeline
	prefs    *prefs.Store
	locks    *queue.WriterLock
	business *metrics.BusinessMetricsRegistry
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(repos repository.Manager, queueStore *queue.Store, feedbackPipeline *feedback.Pipeline, prefsStore *prefs.Store, locks *queue.WriterLock, business *metrics.BusinessMetricsRegistry) *Handlers {
	return &Handlers{repos: repos, queue: queueStore, feedback: feedbackPipeline, prefs: prefsStore, locks: locks, business: business}
}

func nullTimeStr(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := schedwindow.FormatTimestamp(t.Time)
	return &s
}

func nullStr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// toQueueEntryDTO joins a queue row against its catalog/staging metadata.
// A failure to resolve the join is non-fatal: the row is returned with
// only its own fields populated, since the snapshot itself is still valid.
func (h *Handlers) toQueueEntryDTO(c *gin.Context, row models.DailyPracticeQueue) QueueEntryDTO {
	dto := QueueEntryDTO{
		TuneRef:             row.TuneRef,
		Bucket:              int(row.Bucket),
		OrderIndex:          row.OrderIndex,
		SnapshotCoalescedTS: schedwindow.FormatTimestamp(row.SnapshotCoalescedTS),
		WindowStartUTC:      schedwindow.FormatTimestamp(row.WindowStartUTC),
		WindowEndUTC:        schedwindow.FormatTimestamp(row.WindowEndUTC),
		GeneratedAt:         row.GeneratedAt,
		Active:              row.Active,
	}
	dto.ScheduledSnapshot = nullTimeStr(row.ScheduledSnapshot)
	dto.LatestReviewDateSnapshot = nullTimeStr(row.LatestReviewDateSnapshot)

	joined, err := h.repos.Tunes().GetJoined(c.Request.Context(), row.PlaylistRef, row.TuneRef)
	if err != nil {
		return dto
	}
	dto.Title = joined.Title
	dto.Type = joined.Type.String
	dto.Structure = nullStr(joined.Structure)
	dto.Mode = nullStr(joined.Mode)
	dto.Incipit = nullStr(joined.Incipit)
	dto.Genre = nullStr(joined.Genre)
	dto.Learned = nullTimeStr(joined.Learned)
	dto.Goal = nullStr(joined.LatestGoal)
	dto.LatestGoal = nullStr(joined.LatestGoal)
	dto.HasStaged = joined.HasStaged
	return dto
}

// GetQueue handles GET /api/queue: get_queue (spec §6.1).
func (h *Handlers) GetQueue(c *gin.Context) {
	var req GetQueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	sitDown, err := schedwindow.ParseTimestamp(req.SitDownUTC)
	if err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "malformed sit_down_utc"}))
		return
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	rows, err := h.queue.GenerateOrGet(c.Request.Context(), req.UserRef, req.PlaylistRef, sitDown, req.TZOffsetMinutes, req.ForceRegen)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	mode := "generate"
	if req.ForceRegen {
		mode = "force_regen"
	}
	byBucket := map[int]int{}
	out := make([]QueueEntryDTO, 0, len(rows))
	for _, row := range rows {
		byBucket[int(row.Bucket)]++
		out = append(out, h.toQueueEntryDTO(c, row))
	}
	if h.business != nil {
		h.business.RecordQueueGeneration(mode, byBucket)
		h.business.SetActiveQueueSize(req.PlaylistRef, len(rows))
	}

	RespondWith(c, http.StatusOK, out)
}

// ResetQueue handles POST /api/queue/reset: reset_queue (spec §6.1).
func (h *Handlers) ResetQueue(c *gin.Context) {
	var req ResetQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	deactivated, err := h.queue.Reset(c.Request.Context(), req.UserRef, req.PlaylistRef)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}
	RespondWith(c, http.StatusOK, ResetQueueResponse{Deactivated: deactivated})
}

// RefillQueue handles POST /api/queue/refill: refill_queue (spec §6.1).
func (h *Handlers) RefillQueue(c *gin.Context) {
	var req RefillQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	sitDown, err := schedwindow.ParseTimestamp(req.SitDownUTC)
	if err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "malformed sit_down_utc"}))
		return
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	rows, err := h.queue.Refill(c.Request.Context(), req.UserRef, req.PlaylistRef, sitDown, req.TZOffsetMinutes, req.Count)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	out := make([]QueueEntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.toQueueEntryDTO(c, row))
	}
	if h.business != nil {
		h.business.RecordQueueGeneration("refill", map[int]int{int(models.BucketOlderBacklog): len(rows)})
	}
	RespondWith(c, http.StatusOK, out)
}

// AddTunesToQueue handles POST /api/queue/add: add_tunes_to_queue (spec §6.1).
func (h *Handlers) AddTunesToQueue(c *gin.Context) {
	var req AddTunesToQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	sitDown, err := schedwindow.ParseTimestamp(req.SitDownUTC)
	if err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "malformed sit_down_utc"}))
		return
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	result, err := h.queue.AddManual(c.Request.Context(), req.UserRef, req.PlaylistRef, req.TuneIDs, sitDown, req.TZOffsetMinutes)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	RespondWith(c, http.StatusOK, AddTunesToQueueResponse{
		Added:                   result.Added,
		SkippedExisting:         result.SkippedExisting,
		Missing:                 result.Missing,
		DuplicateRequestIgnored: result.DuplicateRequestIgnored,
	})
}

// SubmitFeedback handles POST /api/feedback: submit_feedback (spec §6.1, §4.H).
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	sitDown, err := schedwindow.ParseTimestamp(req.SitDownUTC)
	if err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "malformed sit_down_utc"}))
		return
	}

	items := make([]feedback.ItemInput, 0, len(req.Updates))
	for tuneRef, upd := range req.Updates {
		items = append(items, feedback.ItemInput{
			TuneRef:   tuneRef,
			Label:     upd.Feedback,
			Goal:      models.Goal(upd.Goal),
			Technique: models.Technique(upd.Technique),
		})
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	result, err := h.feedback.Submit(c.Request.Context(), feedback.Request{
		UserRef:     req.UserRef,
		PlaylistRef: req.PlaylistRef,
		SitDownUTC:  sitDown,
		Stage:       req.Stage,
		Items:       items,
	})
	if err != nil {
		RespondWithError(c, ErrUnknownLabel.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	perTune := make([]PerTuneError, 0, len(result.Errors))
	for _, e := range result.Errors {
		perTune = append(perTune, PerTuneError{TuneRef: e.TuneRef, Message: e.Message})
	}
	if h.business != nil {
		reasons := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			reasons = append(reasons, e.Message)
		}
		h.business.RecordFeedbackOutcome(len(result.Committed), len(result.Staged), len(result.Cleared), reasons)
	}

	RespondWith(c, http.StatusOK, SubmitFeedbackResponse{
		Committed:     result.Committed,
		Staged:        result.Staged,
		Cleared:       result.Cleared,
		PerTuneErrors: perTune,
	})
}

// CommitStaged handles POST /api/feedback/commit: commit_staged (spec §6.1).
func (h *Handlers) CommitStaged(c *gin.Context) {
	var req CommitStagedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	unlock := h.locks.Lock(req.UserRef, req.PlaylistRef)
	defer unlock()

	result, err := h.feedback.CommitStaged(c.Request.Context(), req.UserRef, req.PlaylistRef)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}
	if h.business != nil {
		h.business.RecordFeedbackOutcome(len(result.Committed), 0, 0, nil)
	}
	RespondWith(c, http.StatusOK, CommitStagedResponse{Count: len(result.Committed)})
}

// GetSchedulingPrefs handles GET /api/prefs/scheduling: get_scheduling_prefs (spec §6.2).
func (h *Handlers) GetSchedulingPrefs(c *gin.Context) {
	userRef := c.Query("user_ref")
	if userRef == "" {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "user_ref is required"}))
		return
	}

	p, err := h.prefs.SchedulingPrefsOrDefault(c.Request.Context(), userRef)
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	RespondWith(c, http.StatusOK, SchedulingPrefsDTO{
		UserRef:                     p.UserRef,
		AcceptableDelinquencyWindow: p.AcceptableDelinquencyWindow,
		MinReviewsPerDay:            p.MinReviewsPerDay,
		MaxReviewsPerDay:            p.MaxReviewsPerDay,
		DaysPerWeek:                 p.DaysPerWeek,
		WeeklyRules:                 p.WeeklyRules,
		Exceptions:                  p.Exceptions,
	})
}

// SetSchedulingPrefs handles PUT /api/prefs/scheduling: set_scheduling_prefs (spec §6.2).
func (h *Handlers) SetSchedulingPrefs(c *gin.Context) {
	var dto SchedulingPrefsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	p := models.SchedulingPrefs{
		UserRef:                     dto.UserRef,
		AcceptableDelinquencyWindow: dto.AcceptableDelinquencyWindow,
		MinReviewsPerDay:            dto.MinReviewsPerDay,
		MaxReviewsPerDay:            dto.MaxReviewsPerDay,
		DaysPerWeek:                 dto.DaysPerWeek,
		WeeklyRules:                 dto.WeeklyRules,
		Exceptions:                  dto.Exceptions,
	}
	if err := h.prefs.UpsertSchedulingPrefs(c.Request.Context(), p); err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}
	RespondWith(c, http.StatusOK, dto)
}

// GetSRPrefs handles GET /api/prefs/sr: get_sr_prefs (spec §6.2).
func (h *Handlers) GetSRPrefs(c *gin.Context) {
	userRef := c.Query("user_ref")
	alg := c.Query("alg_type")
	if userRef == "" || alg == "" {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": "user_ref and alg_type are required"}))
		return
	}

	p, found, err := h.prefs.SRPrefsOrDefault(c.Request.Context(), userRef, models.AlgorithmType(alg))
	if err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}
	if !found {
		RespondWith(c, http.StatusOK, SRPrefsDTO{UserRef: userRef, AlgType: alg})
		return
	}

	dto := SRPrefsDTO{
		UserRef:         p.UserRef,
		AlgType:         string(p.AlgType),
		EnableFuzzing:   &p.EnableFuzzing,
		RequestRetention: &p.RequestRetention,
		MaximumInterval: &p.MaximumInterval,
	}
	if len(p.FSRSWeights) == 17 {
		var w [17]float64
		copy(w[:], p.FSRSWeights)
		dto.FSRSWeights = &w
	}
	RespondWith(c, http.StatusOK, dto)
}

// SetSRPrefs handles PUT /api/prefs/sr: set_sr_prefs (spec §6.2).
func (h *Handlers) SetSRPrefs(c *gin.Context) {
	var dto SRPrefsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		RespondWithError(c, ErrBadRequest.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}

	p := models.SRPrefs{
		UserRef: dto.UserRef,
		AlgType: models.AlgorithmType(dto.AlgType),
	}
	if dto.FSRSWeights != nil {
		p.FSRSWeights = dto.FSRSWeights[:]
	}
	if dto.RequestRetention != nil {
		p.RequestRetention = *dto.RequestRetention
	}
	if dto.MaximumInterval != nil {
		p.MaximumInterval = *dto.MaximumInterval
	}
	if dto.EnableFuzzing != nil {
		p.EnableFuzzing = *dto.EnableFuzzing
	}

	if err := h.prefs.UpsertSRPrefs(c.Request.Context(), p); err != nil {
		RespondWithError(c, ErrStorageFailure.WithDetails(map[string]interface{}{"reason": err.Error()}))
		return
	}
	RespondWith(c, http.StatusOK, dto)
}

// queueOpKeyFields mirrors the identifying fields carried by both
// GetQueueRequest (query-bound) and RefillQueueRequest (JSON-body-bound).
type queueOpKeyFields struct {
	UserRef     string `form:"user_ref" json:"user_ref"`
	PlaylistRef int64  `form:"playlist_ref" json:"playlist_ref"`
}

// QueueOpRateLimitKey derives the (user_ref, playlist_ref) rate-limit key
// shared by force_regen and refill_queue. GetQueue binds from the query
// string; RefillQueue binds from the JSON body, so a query-only read would
// silently never find a key for refill and leave it unthrottled. For JSON
// requests this uses ShouldBindBodyWith, which caches the decoded body on
// the context so the handler's own ShouldBindJSON still sees it.
func QueueOpRateLimitKey(c *gin.Context) (string, bool) {
	var f queueOpKeyFields
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(&f); err != nil {
			return "", false
		}
		var regen struct {
			ForceRegen bool `form:"force_regen"`
		}
		if err := c.ShouldBindQuery(&regen); err != nil || !regen.ForceRegen {
			return "", false
		}
	} else {
		if err := c.ShouldBindBodyWith(&f, binding.JSON); err != nil {
			return "", false
		}
	}
	if f.UserRef == "" || f.PlaylistRef == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", f.UserRef, f.PlaylistRef), true
}
