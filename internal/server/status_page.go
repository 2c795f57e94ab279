package server

import (
	"html/template"
	"net/http"
	"sort"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/status"

	"github.com/gin-gonic/gin"
)

// boardRow is one public status-board line. It carries no notes or versions.
type boardRow struct {
	Name      string         `json:"name"`
	System    string         `json:"system"`
	Server    string         `json:"server"`
	Status    status.Status  `json:"status"`
	LastCheck *time.Time     `json:"lastCheck"`
	Uptime    monitor.Status `json:"uptime,omitempty"`
}

func (s *Server) board(c *gin.Context) ([]boardRow, error) {
	all, err := s.sites.All(c.Request.Context(), 1)
	if err != nil {
		return nil, err
	}
	now := s.now()
	rows := make([]boardRow, 0, len(all))
	for _, st := range all {
		row := boardRow{
			Name:   st.Name,
			System: st.Kind.Label(),
			Server: st.Server,
			Status: status.ForSite(st, now),
		}
		if l := st.Latest(); l != nil {
			row.LastCheck = l.CheckedAt
		}
		if res, ok := s.tracker.Get(st.URL); ok {
			row.Uptime = res.Status
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ai, aj := rows[i].Status.NeedsAttention(), rows[j].Status.NeedsAttention()
		if ai != aj {
			return ai
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

func (s *Server) handleStatusJSON(c *gin.Context) {
	rows, err := s.board(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	OK(c, rows)
}

func (s *Server) handleStatusPage(c *gin.Context) {
	rows, err := s.board(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	data := struct {
		Title string
		Rows  []boardRow
	}{Title: s.cfg.Title, Rows: rows}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := statusTemplate.Execute(c.Writer, data); err != nil {
		s.logger.Sugar().Errorf("render status page: %v", err)
	}
}

var statusTemplate = template.Must(template.New("status").Funcs(template.FuncMap{
	"checked": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return t.Format("2006-01-02 15:04")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
	<meta http-equiv="refresh" content="60">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #1a1b26; color: #a9b1d6; padding: 20px; margin: 0; }
		h1 { text-align: center; color: #7aa2f7; margin-bottom: 30px; }
		.container { max-width: 800px; margin: 0 auto; }
		.card { background: #24283b; padding: 16px 20px; margin-bottom: 12px; border-radius: 8px; display: flex; align-items: center; justify-content: space-between; }
		.name { font-size: 1.1em; font-weight: bold; color: #c0caf5; margin-bottom: 4px; }
		.meta { font-size: 0.85em; color: #565f89; }
		.badges { display: flex; gap: 8px; }
		.badge { font-weight: bold; padding: 6px 12px; border-radius: 6px; min-width: 70px; text-align: center; color: #1a1b26; }
		.Completed, .up { background: #9ece6a; }
		.Due, .down { background: #f7768e; }
		.Pending { background: #e0af68; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Title}}</h1>
		{{range .Rows}}
		<div class="card">
			<div>
				<div class="name">{{.Name}}</div>
				<div class="meta">{{.System}} | {{.Server}} | Last check: {{checked .LastCheck}}</div>
			</div>
			<div class="badges">
				{{if .Uptime}}<div class="badge {{.Uptime}}">{{.Uptime}}</div>{{end}}
				<div class="badge {{.Status}}">{{.Status}}</div>
			</div>
		</div>
		{{else}}
		<div class="meta" style="text-align: center;">No sites tracked yet.</div>
		{{end}}
	</div>
</body>
</html>`))
