package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go-maintdash/internal/models"
	"go-maintdash/internal/report"
	"go-maintdash/internal/sites"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	kindWordPress  = models.KindWordPress
	kindSupportPal = models.KindSupportPal

	// reportLogs is current plus previous, the pair diffs are built from.
	reportLogs = 2
	loginsPage = 50
)

// pluginList accepts either a JSON array or a JSON string holding the
// serialized array, as older clients send.
type pluginList []models.Plugin

func (p *pluginList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = nil
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*p = models.ParsePlugins(text)
		return nil
	}
	var list []models.Plugin
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*p = list
	return nil
}

type versionFields struct {
	AppVersion       string     `json:"appVersion"`
	WordpressVersion string     `json:"wordpressVersion"`
	SPVersion        string     `json:"spVersion"`
	PHPVersion       string     `json:"phpVersion"`
	DBVersion        string     `json:"dbVersion"`
	Theme            string     `json:"theme"`
	NginxVersion     string     `json:"nginxVersion"`
	Plugins          pluginList `json:"plugins"`
	Note             string     `json:"note"`
}

func (v versionFields) input() sites.MaintenanceInput {
	app := v.AppVersion
	for _, alt := range []string{v.WordpressVersion, v.SPVersion} {
		if app == "" {
			app = alt
		}
	}
	return sites.MaintenanceInput{
		AppVersion:   app,
		PHPVersion:   v.PHPVersion,
		DBVersion:    v.DBVersion,
		Theme:        v.Theme,
		NginxVersion: v.NginxVersion,
		Plugins:      v.Plugins,
		Note:         v.Note,
	}
}

type siteRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Server string `json:"server"`
	versionFields
}

type maintenanceRequest struct {
	SiteID       string `json:"siteId"`
	WebsiteID    string `json:"websiteId"`
	SupportPalID string `json:"supportPalId"`
	versionFields
}

func (m maintenanceRequest) siteID() string {
	for _, id := range []string{m.SiteID, m.WebsiteID, m.SupportPalID} {
		if id != "" {
			return id
		}
	}
	return ""
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		BadRequest(c, "invalid request body")
		return false
	}
	return true
}

// --- auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	token, err := s.sessions.Issue(id)
	if err != nil {
		InternalError(c, s.logger, err)
		return
	}
	maxAge := int(s.cfg.SessionTTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", !s.cfg.Dev, true)
	OK(c, gin.H{"token": token, "user": id})
}

func (s *Server) handleMe(c *gin.Context) {
	id, _ := currentIdentity(c)
	OK(c, id)
}

// --- sites ---

func (s *Server) listSites(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.sites.List(c.Request.Context(), kind, 1)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (s *Server) createSite(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req siteRequest
		if !bindJSON(c, &req) {
			return
		}
		site, err := s.sites.Create(c.Request.Context(), kind, sites.SiteInput{
			Name: req.Name, URL: req.URL, Server: req.Server, Initial: req.input(),
		})
		if err != nil {
			s.fail(c, err)
			return
		}
		Created(c, site)
	}
}

func (s *Server) updateSite(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req siteRequest
		if !bindJSON(c, &req) {
			return
		}
		id := req.ID
		if id == "" {
			id = c.Query("id")
		}
		site, err := s.sites.Update(c.Request.Context(), kind, id, sites.SiteInput{
			Name: req.Name, URL: req.URL, Server: req.Server,
		})
		if err != nil {
			s.fail(c, err)
			return
		}
		OK(c, site)
	}
}

func (s *Server) deleteSite(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("id")
		if err := s.sites.Delete(c.Request.Context(), kind, id); err != nil {
			s.fail(c, err)
			return
		}
		OK(c, gin.H{"message": fmt.Sprintf("%s site deleted", kind.Label())})
	}
}

func (s *Server) recordMaintenance(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req maintenanceRequest
		if !bindJSON(c, &req) {
			return
		}
		by, _ := currentIdentity(c)
		log, err := s.sites.RecordMaintenance(c.Request.Context(), kind, req.siteID(), req.input(), by)
		if err != nil {
			s.fail(c, err)
			return
		}
		Created(c, log)
	}
}

// --- reports ---

type reportsResponse struct {
	WPSites []models.Site `json:"wpSites"`
	SPSites []models.Site `json:"spSites"`
	Pending []report.Entry `json:"pending"`
	Done    []report.Entry `json:"completed"`
	Stats   report.Stats   `json:"stats"`
}

func (s *Server) handleReports(c *gin.Context) {
	all, err := s.sites.All(c.Request.Context(), reportLogs)
	if err != nil {
		s.fail(c, err)
		return
	}
	rep := report.Build(all, s.now())
	resp := reportsResponse{
		WPSites: []models.Site{},
		SPSites: []models.Site{},
		Pending: rep.Pending,
		Done:    rep.Completed,
		Stats:   rep.Stats,
	}
	for _, st := range all {
		if st.Kind == kindWordPress {
			resp.WPSites = append(resp.WPSites, st)
		} else {
			resp.SPSites = append(resp.SPSites, st)
		}
	}
	sortByName(resp.WPSites)
	sortByName(resp.SPSites)
	c.JSON(http.StatusOK, resp)
}

func sortByName(list []models.Site) {
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
}

func (s *Server) handleExportCSV(c *gin.Context) {
	all, err := s.sites.All(c.Request.Context(), reportLogs)
	if err != nil {
		s.fail(c, err)
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := report.Build(all, now).WriteCSV(&buf); err != nil {
		InternalError(c, s.logger, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(now)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleDashboard(c *gin.Context) {
	all, err := s.sites.All(c.Request.Context(), 1)
	if err != nil {
		s.fail(c, err)
		return
	}
	rep := report.Build(all, s.now())
	OK(c, gin.H{"stats": rep.Stats, "pending": rep.Pending})
}

func (s *Server) handleLogins(c *gin.Context) {
	events, err := s.store.ListLogins(c.Request.Context(), loginsPage)
	if err != nil {
		s.fail(c, err)
		return
	}
	OK(c, events)
}

// --- side effects ---

func (s *Server) handleUptime(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		BadRequest(c, "url is required")
		return
	}
	res := s.prober.Probe(c.Request.Context(), models.NormalizeURL(target))
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleNotify(c *gin.Context) {
	if s.reminder == nil {
		InternalError(c, s.logger, errors.New("reminder not configured"))
		return
	}
	summary, err := s.reminder.Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	msg := "No maintenance due."
	if summary.Count > 0 && summary.Partial {
		msg = "Notification sent to some channels"
	} else if summary.Count > 0 && summary.Sent {
		msg = "Notification sent"
	} else if summary.Count > 0 {
		msg = "Notification not sent"
		s.logger.Warn("reminder not delivered", zap.Int("due", summary.Count))
	}
	OK(c, gin.H{"success": true, "message": msg, "sent": summary.Sent, "partial": summary.Partial, "count": summary.Count})
}
