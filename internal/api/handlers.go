package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchnext/watchnext/internal/acquisition"
	"github.com/watchnext/watchnext/internal/media"
	"github.com/watchnext/watchnext/internal/scheduler"
	"github.com/watchnext/watchnext/internal/scheduler/tasks"
	syncsvc "github.com/watchnext/watchnext/internal/sync"
	"github.com/watchnext/watchnext/internal/trakt"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type userStatus struct {
	ID    string          `json:"id"`
	Name  string          `json:"name,omitempty"`
	Auth  trakt.AuthState `json:"auth"`
	Items int             `json:"cachedItems"`
}

type statusResponse struct {
	Users       []userStatus         `json:"users"`
	ItemSets    int                  `json:"itemSets"`
	Series      int                  `json:"cachedSeries"`
	Progress    int                  `json:"progressEntries"`
	EndedSeries int                  `json:"endedSeries"`
	LastSync    *syncsvc.Summary     `json:"lastSync,omitempty"`
	Tasks       []scheduler.TaskInfo `json:"tasks"`
}

func (s *Server) status(c echo.Context) error {
	resp := statusResponse{
		ItemSets:    s.items.Len(),
		Series:      s.progress.SeriesCount(),
		Progress:    s.progress.ProgressCount(),
		EndedSeries: s.ended.Len(),
		LastSync:    s.syncService.LastSummary(),
		Tasks:       s.sched.ListTasks(),
	}
	for _, user := range s.cfg.Users {
		state := s.trakt.AuthStatus(user.ID)
		if state == trakt.AuthNone && s.trakt.HasToken(user.ID) {
			state = trakt.AuthAuthorized
		}
		count := 0
		for _, items := range s.items.AllForUser(user.ID) {
			count += len(items)
		}
		resp.Users = append(resp.Users, userStatus{
			ID:    user.ID,
			Name:  user.Name,
			Auth:  state,
			Items: count,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) triggerSync(c echo.Context) error {
	if err := s.sched.RunNow(tasks.RecommendationSyncTaskID); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) startAuth(c echo.Context) error {
	userID := c.Param("userID")
	if !s.knownUser(userID) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown user")
	}

	device, err := s.trakt.StartDeviceAuth(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, device)
}

func (s *Server) authStatus(c echo.Context) error {
	userID := c.Param("userID")
	if !s.knownUser(userID) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown user")
	}

	state := s.trakt.AuthStatus(userID)
	if state == trakt.AuthNone && s.trakt.HasToken(userID) {
		state = trakt.AuthAuthorized
	}
	return c.JSON(http.StatusOK, map[string]trakt.AuthState{"state": state})
}

func (s *Server) cancelAuth(c echo.Context) error {
	s.trakt.CancelDeviceAuth(c.Param("userID"))
	return c.NoContent(http.StatusNoContent)
}

// play intercepts a placeholder playback attempt: the played item is
// looked up in the cache and handed to the acquisition backend. The
// structured result goes back to the caller either way.
func (s *Server) play(c echo.Context) error {
	userID := c.Param("userID")
	key := c.Param("key")

	item, ok := s.findItem(userID, key)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "item not in cache")
	}

	ctx := c.Request().Context()
	var (
		result acquisition.Result
		err    error
	)
	switch item.Kind {
	case media.KindMovie:
		result, err = s.backend.RequestMovie(ctx, item, userID)
	case media.KindShow:
		result, err = s.backend.RequestShow(ctx, item, item.Season, userID, s.classifier.IsAnime(item))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown item kind")
	}

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user", userID).
			Str("key", key).
			Msg("Acquisition request failed")
		return c.JSON(http.StatusBadGateway, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) findItem(userID, key string) (media.Item, bool) {
	for _, items := range s.items.AllForUser(userID) {
		for _, item := range items {
			if item.Key() == key {
				return item, true
			}
		}
	}
	return media.Item{}, false
}

func (s *Server) knownUser(userID string) bool {
	for _, user := range s.cfg.Users {
		if user.ID == userID {
			return true
		}
	}
	return false
}
