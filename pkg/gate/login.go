package gate

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gatehouse-dev/gatehouse/pkg/fileserver"
)

// Login template placeholders. The template is plain HTML shipped with
// the served files; rendering is plain string substitution, no template
// engine.
const (
	phTitle  = "<!--TITLE GOES HERE-->"
	phConfig = "/*GATEKEEPR CONFIG GOES HERE*/"
	phLogo   = "LOGO PATH GOES HERE"
	phAreaID = "AREA ID GOES HERE"
	phHome   = "HOME PATH GOES HERE"
	phTerms  = "TERMS URL GOES HERE"
)

// loginTemplatePath is relative to the served-files root.
var loginTemplatePath = filepath.Join("gatekeepr", "gatekeepr.html")

// clientConfig is serialized into the login page for its scripts.
type clientConfig struct {
	Server         string `json:"server"`
	GoogleClientID string `json:"googleClientId"`
	GatedArea      *Area  `json:"gatedArea"`
}

// serveLogin renders the login page for /gk/<areaId>. An unknown area is
// a 404 with no session store access.
func (g *Gate) serveLogin(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, loginPathPrefix)
	areaID, _, _ := strings.Cut(rest, "/")

	area, ok := g.AreaByID(areaID)
	if !ok || areaID == "" {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	tmpl, err := os.ReadFile(filepath.Join(g.cfg.Root, loginTemplatePath))
	if err != nil {
		g.log.Error("login template unreadable", "path", loginTemplatePath, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cfgJSON, err := json.Marshal(clientConfig{
		Server:         g.cfg.Host,
		GoogleClientID: g.cfg.GoogleClientID,
		GatedArea:      area,
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body := strings.NewReplacer(
		phTitle, area.Name,
		phConfig, string(cfgJSON),
		phLogo, area.Image,
		phAreaID, area.ID,
		phHome, area.Home,
		phTerms, area.Terms,
		fileserver.VersionPlaceholder, g.cfg.Version,
	).Replace(string(tmpl))

	header := w.Header()
	header.Set("Content-Type", "text/html")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("Cache-Control", fileserver.DefaultCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
