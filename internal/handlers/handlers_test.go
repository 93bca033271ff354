package handlers_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vulnreport/internal/config"
	"vulnreport/internal/database"
	"vulnreport/internal/models"
	"vulnreport/internal/server"
)

const (
	adminPassword  = "Admin#Pass123"
	editorPassword = "Editor#Pass123"
	viewerPassword = "Viewer#Pass123"
)

// newEnv boots the full application against a throwaway sqlite file and
// returns an HTTP client with its own cookie jar.
func newEnv(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	tmp := t.TempDir()
	staticDir := filepath.Join(tmp, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))

	cfg := &config.Config{
		DBDSN:         filepath.Join(tmp, "test.sqlite"),
		ServerPort:    "0",
		SessionSecret: "test-secret",
		StaticDir:     staticDir,
		UploadDir:     filepath.Join(staticDir, "uploads"),
		TemplatesDir:  "../../web/templates",
		AdminUsername: "admin",
		AdminPassword: adminPassword,
	}

	database.Init(cfg)

	srv := httptest.NewServer(server.NewRouter(cfg))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar
	return srv, client
}

func postForm(t *testing.T, client *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(u, form)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, client *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := client.Get(u)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func login(t *testing.T, client *http.Client, base, username, password string) {
	t.Helper()
	resp := postForm(t, client, base+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, "login as %s failed: %s", username, body)
}

func seedCompany(t *testing.T, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name}
	require.NoError(t, database.DB.Create(&company).Error)
	return company
}

func seedUser(t *testing.T, username, password string, role models.UserRole, companyID *uint) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CompanyID:    companyID,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func seedVuln(t *testing.T, company models.Company, title string, sev models.Severity) models.Vulnerability {
	t.Helper()
	v := models.Vulnerability{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Title:       title,
		Severity:    sev,
		Status:      models.StatusOpen,
	}
	require.NoError(t, database.DB.Create(&v).Error)
	return v
}

func selectCompany(t *testing.T, client *http.Client, base string, id uint) {
	t.Helper()
	resp := postForm(t, client, base+"/companies/select/"+uintString(id), url.Values{})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestLoginFlow(t *testing.T) {
	srv, client := newEnv(t)

	resp := postForm(t, client, srv.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {"wrong password"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")

	login(t, client, srv.URL, "admin", adminPassword)

	// audit trail records the login
	var count int64
	database.DB.Model(&models.AuditLog{}).Where("action = ?", "login").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestNonAdminStartsInHomeCompany(t *testing.T) {
	srv, client := newEnv(t)
	company := seedCompany(t, "Acme")
	seedUser(t, "erin", editorPassword, models.RoleEditor, &company.ID)
	seedVuln(t, company, "Open Redirect", models.SeverityLow)

	login(t, client, srv.URL, "erin", editorPassword)

	// the dashboard is reachable immediately, no tenant picker step
	resp := get(t, client, srv.URL+"/")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Open Redirect")
}

func TestExportJSONScopedAndOrdered(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	other := seedCompany(t, "Globex")
	seedVuln(t, acme, "Weak Ciphers", models.SeverityMedium)
	seedVuln(t, acme, "RCE in Upload", models.SeverityCritical)
	seedVuln(t, other, "Foreign Finding", models.SeverityHigh)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := get(t, client, srv.URL+"/export/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "vulnerabilities.json")

	var records []struct {
		Title    string `json:"title"`
		Severity string `json:"severity"`
		Company  string `json:"company"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()

	require.Len(t, records, 2) // the other tenant's finding stays out
	assert.Equal(t, "RCE in Upload", records[0].Title)
	assert.Equal(t, "Weak Ciphers", records[1].Title)
	for _, r := range records {
		assert.Equal(t, "Acme", r.Company)
	}
}

func TestExportCSV(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	v := seedVuln(t, acme, "SQLi", models.SeverityCritical)
	cvss := 9.8
	v.CVSS = &cvss
	require.NoError(t, database.DB.Save(&v).Error)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := get(t, client, srv.URL+"/export/csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	rows, err := csv.NewReader(resp.Body).ReadAll()
	resp.Body.Close()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "SQLi", rows[1][1])
	assert.Equal(t, "9.8", rows[1][4])
}

func TestSeverityCharts(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	seedVuln(t, acme, "A", models.SeverityCritical)
	seedVuln(t, acme, "B", models.SeverityLow)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := get(t, client, srv.URL+"/charts/severity.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	_, err := png.Decode(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	resp = get(t, client, srv.URL+"/charts/severity.svg")
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "image/svg+xml")
	assert.Contains(t, body, "Critical: 1")
	assert.Contains(t, body, "Low: 1")
}

func TestCommentLikeToggle(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	v := seedVuln(t, acme, "XSS", models.SeverityMedium)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := postForm(t, client, srv.URL+"/vulnerabilities/"+uintString(v.ID)+"/comments", url.Values{
		"body": {"nice catch"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var comment models.Comment
	require.NoError(t, database.DB.Where("vulnerability_id = ?", v.ID).First(&comment).Error)
	assert.Equal(t, "nice catch", comment.Body)

	likeURL := srv.URL + "/comments/" + uintString(comment.ID) + "/like"

	resp = postForm(t, client, likeURL, url.Values{})
	assert.JSONEq(t, `{"likes": 1}`, readBody(t, resp))

	resp = postForm(t, client, likeURL, url.Values{})
	assert.JSONEq(t, `{"likes": 0}`, readBody(t, resp))
}

func TestCompanyRenameRewritesFindings(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	v := seedVuln(t, acme, "Stale Name", models.SeverityLow)

	login(t, client, srv.URL, "admin", adminPassword)

	resp := postForm(t, client, srv.URL+"/companies/"+uintString(acme.ID)+"/edit", url.Values{
		"name": {"Acme Industries"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, database.DB.First(&v, v.ID).Error)
	assert.Equal(t, "Acme Industries", v.CompanyName)
}

func TestSingleAdminInvariant(t *testing.T) {
	srv, client := newEnv(t)
	login(t, client, srv.URL, "admin", adminPassword)

	resp := postForm(t, client, srv.URL+"/users/new", url.Values{
		"username": {"second-admin"},
		"password": {"Sup3r#Secret-Pass"},
		"role":     {"admin"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "There is exactly one administrator account")

	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestWeakPasswordRejected(t *testing.T) {
	srv, client := newEnv(t)
	login(t, client, srv.URL, "admin", adminPassword)

	resp := postForm(t, client, srv.URL+"/users/new", url.Values{
		"username": {"eve"},
		"password": {"short"},
		"role":     {"editor"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "at least 12 characters")
}

func TestSelfDeleteRejected(t *testing.T) {
	srv, client := newEnv(t)
	login(t, client, srv.URL, "admin", adminPassword)

	var admin models.User
	require.NoError(t, database.DB.Where("role = ?", models.RoleAdmin).First(&admin).Error)

	resp := postForm(t, client, srv.URL+"/users/"+uintString(admin.ID)+"/delete", url.Values{})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "you cannot delete your own account")
}

func TestDeleteEditorAccount(t *testing.T) {
	srv, client := newEnv(t)
	editor := seedUser(t, "erin", editorPassword, models.RoleEditor, nil)

	login(t, client, srv.URL, "admin", adminPassword)
	resp := postForm(t, client, srv.URL+"/users/"+uintString(editor.ID)+"/delete", url.Values{})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	database.DB.Model(&models.User{}).Where("username = ?", "erin").Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestViewerCannotWrite(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	seedUser(t, "vera", viewerPassword, models.RoleViewer, &acme.ID)

	login(t, client, srv.URL, "vera", viewerPassword)

	resp := postForm(t, client, srv.URL+"/vulnerabilities/new", url.Values{
		"title":    {"Not Allowed"},
		"severity": {"Low"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "access denied")

	resp = get(t, client, srv.URL+"/users")
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReportDownloads(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	seedVuln(t, acme, "Finding One", models.SeverityHigh)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	for _, path := range []string{
		"/reports/classic.pdf",
		"/reports/executive.pdf",
		"/reports/technical.pdf",
	} {
		resp := get(t, client, srv.URL+path)
		body := readBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"), path)
		assert.True(t, strings.HasPrefix(body, "%PDF"), "%s is not a PDF", path)
	}
}

func TestExecutiveReportCanBeDisabled(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	require.NoError(t, database.DB.Create(&models.ReportConfig{
		CompanyID:        acme.ID,
		TemplateName:     models.TemplateClassic,
		IncludeExecutive: false,
		IncludeTechnical: true,
	}).Error)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := get(t, client, srv.URL+"/reports/executive.pdf")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "executive report is disabled")
}

func TestUploadImage(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "evidence.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := client.Post(srv.URL+"/uploads", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.True(t, strings.HasPrefix(out.URL, "/static/uploads/img-"))
	assert.True(t, strings.HasSuffix(out.URL, ".png"))

	// the stored file is retrievable through the static route
	resp = get(t, client, srv.URL+out.URL)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "payload.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := client.Post(srv.URL+"/uploads", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "unsupported image type")
}

func TestGrantOpensForeignDetailView(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")
	globex := seedCompany(t, "Globex")
	secret := seedVuln(t, acme, "Shared Finding", models.SeverityHigh)
	hidden := seedVuln(t, acme, "Hidden Finding", models.SeverityHigh)
	viewer := seedUser(t, "vera", viewerPassword, models.RoleViewer, &globex.ID)
	require.NoError(t, database.DB.Create(&models.VulnerabilityAccess{
		VulnerabilityID: secret.ID,
		UserID:          viewer.ID,
	}).Error)

	login(t, client, srv.URL, "vera", viewerPassword)

	resp := get(t, client, srv.URL+"/vulnerabilities/"+uintString(secret.ID))
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Shared Finding")

	// the grant is per finding, not per tenant
	resp = get(t, client, srv.URL+"/vulnerabilities/"+uintString(hidden.ID))
	readBody(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAIAdvisorDisabledByDefault(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := postForm(t, client, srv.URL+"/ai/analyze", url.Values{
		"title":       {"SQLi"},
		"description": {"injectable login"},
	})
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "not enabled")
}

func TestAuditPage(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := get(t, client, srv.URL+"/audit")
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "login")
	assert.Contains(t, body, "select")
}

func TestVulnerabilityLifecycle(t *testing.T) {
	srv, client := newEnv(t)
	acme := seedCompany(t, "Acme")

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	resp := postForm(t, client, srv.URL+"/vulnerabilities/new", url.Values{
		"title":       {"Broken Access Control"},
		"severity":    {"high"}, // severity matching is case-insensitive
		"status":      {"Open"},
		"cvss":        {"8.1"},
		"description": {"IDOR on /api/orders"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v models.Vulnerability
	require.NoError(t, database.DB.Where("title = ?", "Broken Access Control").First(&v).Error)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.Equal(t, acme.ID, v.CompanyID)
	assert.Equal(t, "Acme", v.CompanyName)
	require.NotNil(t, v.CVSS)
	assert.InDelta(t, 8.1, *v.CVSS, 1e-9)

	resp = postForm(t, client, srv.URL+"/vulnerabilities/"+uintString(v.ID)+"/edit", url.Values{
		"title":    {"Broken Access Control"},
		"severity": {"Critical"},
		"status":   {"In Progress"},
	})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, database.DB.First(&v, v.ID).Error)
	assert.Equal(t, models.SeverityCritical, v.Severity)
	assert.Equal(t, models.StatusInProgress, v.Status)

	resp = postForm(t, client, srv.URL+"/vulnerabilities/"+uintString(v.ID)+"/delete", url.Values{})
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	database.DB.Model(&models.Vulnerability{}).Where("id = ?", v.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestDashboardTallyCoversAllPages(t *testing.T) {
	srv, client := newEnv(t)

	acme := seedCompany(t, "Acme")
	for i := 0; i < 12; i++ {
		seedVuln(t, acme, "finding "+uintString(uint(i)), models.SeverityCritical)
	}
	require.NoError(t, database.DB.Model(&models.Vulnerability{}).
		Where("title IN ?", []string{"finding 0", "finding 1", "finding 2"}).
		Update("status", models.StatusClosed).Error)
	require.NoError(t, database.DB.Model(&models.Vulnerability{}).
		Where("title IN ?", []string{"finding 3", "finding 4"}).
		Update("status", models.StatusInProgress).Error)

	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	// the tally and status totals must span the whole filtered set, not
	// just the ten rows on the current page
	body := readBody(t, get(t, client, srv.URL+"/"))
	assert.Contains(t, body, "<td>12</td>")
	assert.Contains(t, body, "7 open")
	assert.Contains(t, body, "2 in progress")
	assert.Contains(t, body, "3 closed")

	body = readBody(t, get(t, client, srv.URL+"/?page=2"))
	assert.Contains(t, body, "<td>12</td>")
	assert.Contains(t, body, "Page 2 of 2")
}

func TestDashboardEmptyCompanyPagination(t *testing.T) {
	srv, client := newEnv(t)

	acme := seedCompany(t, "Empty Co")
	login(t, client, srv.URL, "admin", adminPassword)
	selectCompany(t, client, srv.URL, acme.ID)

	body := readBody(t, get(t, client, srv.URL+"/"))
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, "0 open")
}
