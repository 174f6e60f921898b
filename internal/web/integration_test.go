package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/areawizard/internal/area"
	"github.com/vbonduro/areawizard/internal/db"
	"github.com/vbonduro/areawizard/internal/filestore"
	"github.com/vbonduro/areawizard/internal/service"
	"github.com/vbonduro/areawizard/internal/store"
	"github.com/vbonduro/areawizard/internal/web"
	"github.com/vbonduro/areawizard/internal/web/templates"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// temporary attachment directory.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	logger := slog.Default()
	kv := store.NewSQLiteStore(database, logger)
	files, err := filestore.NewLocal(t.TempDir(), logger)
	require.NoError(t, err)

	wizard := service.NewWizardService(
		area.NewRegistry(kv, logger),
		area.NewLedger(kv, logger),
		area.NewDataStore(kv, logger),
		files,
		service.NewStaticAuthenticator(map[string]string{"user": "123456"}, 0),
		service.NewSimulatedSubmitter(0, 0),
		service.DefaultOptions(),
		logger,
	)
	sessions := web.NewSessions(kv, web.SessionOptions{OnExpire: wizard.Restart}, logger)
	srv := httptest.NewServer(web.NewServer(wizard, sessions, templates.FS, logger))
	t.Cleanup(func() {
		srv.Close()
		_ = files.Close()
		_ = database.Close()
	})
	return srv
}

// browser is an http.Client with a cookie jar, so it keeps one wizard session.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) do(req *http.Request) (int, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body)
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(kind, name string, data []byte, htmx bool) (int, string) {
	b.t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(b.t, w.WriteField("kind", kind))
	fw, err := w.CreateFormFile("file", name)
	require.NoError(b.t, err)
	_, err = fw.Write(data)
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, b.base+"/wizard/attachments", body)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

func (b *browser) login() {
	b.t.Helper()
	status, body := b.post("/wizard/login", url.Values{"username": {"user"}, "password": {"123456"}})
	require.Equal(b.t, http.StatusOK, status, body)
	require.Contains(b.t, body, "Seleccione un área")
}

func TestIntegration_RootRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	status, body := b.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Iniciar sesión")

	u, _ := url.Parse(srv.URL)
	var names []string
	for _, c := range b.client.Jar.Cookies(u) {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "wizard_session")
}

func TestIntegration_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/wizard")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestIntegration_LoginValidation(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	status, body := b.post("/wizard/login", url.Values{"username": {"user"}, "password": {"123"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "al menos 6 caracteres")
	assert.Contains(t, body, `value="user"`, "username is kept on re-render")

	status, body = b.post("/wizard/login", url.Values{"username": {"user"}, "password": {"654321"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Usuario o contraseña incorrectos")
}

func TestIntegration_ExistingAreaFlow(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	status, body := b.post("/wizard/area", url.Values{"area": {"arrime"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Configuración del proceso")
	assert.Contains(t, body, "Área seleccionada: Arrime")

	status, body = b.post("/wizard/process", url.Values{"area": {"arrime"}, "process": {"inspeccion"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Por favor, complete todos los campos")

	status, body = b.post("/wizard/process", url.Values{"area": {"arrime"}, "process": {"inspeccion"}, "subprocess": {"revision"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Descripción")

	status, body = b.upload("photo", "frente.jpg", minimalJPEG, false)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Archivo agregado: frente.jpg")

	link := regexp.MustCompile(`/attachments/arrime/[0-9a-f-]+`).FindString(body)
	require.NotEmpty(t, link)
	status, content := b.get(link)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(minimalJPEG), content)

	status, body = b.post("/wizard/description", url.Values{"description": {"Muro con grietas"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Resultado")

	status, _ = b.post("/wizard/result/draft", url.Values{"observation": {"pendiente"}})
	assert.Equal(t, http.StatusNoContent, status)
	_, body = b.get("/wizard")
	assert.Contains(t, body, "pendiente")

	status, body = b.post("/wizard/result", url.Values{"result": {"Aprobado"}, "observation": {"Sin novedad"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Resumen")
	assert.Contains(t, body, "Proceso completado exitosamente")
	assert.Contains(t, body, "Aprobado")
	assert.Contains(t, body, "Muro con grietas")

	status, body = b.post("/wizard/restart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Iniciar sesión")
	assert.Contains(t, body, "Proceso reiniciado")
}

func TestIntegration_NewAreaNeedsTwoAttachments(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()

	status, body := b.post("/wizard/area", url.Values{"area": {"no-disponible"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Nombre del área")

	status, body = b.upload("photo", "uno.jpg", minimalJPEG, true)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="attachments"`)
	assert.NotContains(t, body, "<html", "htmx upload answers with the partial")
	assert.Contains(t, body, "(1/2)")

	form := url.Values{"title": {"Bar"}, "description": {"Frente nuevo"}}
	status, body = b.post("/wizard/description", form)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Se requieren al menos 2 archivos adjuntos")
	assert.Contains(t, body, "Frente nuevo", "description is kept on re-render")

	status, _ = b.upload("image", "dos.jpg", minimalJPEG, true)
	require.Equal(t, http.StatusOK, status)

	status, body = b.post("/wizard/description", form)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, "Área: <strong>Bar</strong>")

	status, body = b.get("/api/areas")
	require.Equal(t, http.StatusOK, status)
	var areas []service.AreaOverview
	require.NoError(t, json.Unmarshal([]byte(body), &areas))
	require.Len(t, areas, 5)
	assert.Equal(t, "Bar", areas[4].Name)
	assert.Equal(t, 2, areas[4].Attachments.Count)
	require.NotNil(t, areas[4].Data.Description)
	assert.Equal(t, "Frente nuevo", *areas[4].Data.Description)
}

func TestIntegration_UploadRejectsWrongKind(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.post("/wizard/area", url.Values{"area": {"no-disponible"}})

	status, body := b.upload("photo", "notas.txt", []byte("hola"), true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Por favor, seleccione un archivo de imagen")

	status, body = b.upload("photo", "notas.txt", []byte("hola"), false)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Por favor, seleccione un archivo de imagen")
}

func TestIntegration_DeleteAttachment(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.post("/wizard/area", url.Values{"area": {"arrime"}})
	b.post("/wizard/process", url.Values{"area": {"arrime"}, "process": {"control"}, "subprocess": {"calidad"}})

	_, body := b.upload("file", "informe.pdf", []byte("%PDF-1.4"), true)
	m := regexp.MustCompile(`/wizard/attachments/([0-9a-f-]+)/delete`).FindStringSubmatch(body)
	require.Len(t, m, 2)

	status, body := b.post("/wizard/attachments/"+m[1]+"/delete", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Archivo removido")
	assert.Contains(t, body, "Sin archivos adjuntos.")

	status, _ = b.get("/attachments/arrime/" + m[1])
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIntegration_BackReturnsToPreviousScreen(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)
	b.login()
	b.post("/wizard/area", url.Values{"area": {"arrime"}})

	status, body := b.post("/wizard/back", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Seleccione un área")
	assert.Contains(t, body, `value="arrime" checked`)
}

func TestIntegration_ProcessFieldsPartial(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	status, body := b.get("/wizard/process-fields?area=servicio-voladura")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Perforación")
	assert.NotContains(t, body, "Inspección")

	_, body = b.get("/wizard/process-fields?area=arrime&process=mantenimiento")
	assert.Contains(t, body, "Preventivo")
}

func TestIntegration_SessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	alice := newBrowser(t, srv)
	bob := newBrowser(t, srv)

	alice.login()
	_, body := bob.get("/wizard")
	assert.Contains(t, body, "Iniciar sesión")
}

func TestIntegration_OutOfOrderSubmitsAreRejected(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		path     string
		form     url.Values
		screen   string
	}{
		{"area before login", false, "/wizard/area", url.Values{"area": {"arrime"}}, "Iniciar sesión"},
		{"result before login", false, "/wizard/result", url.Values{"result": {"ok"}}, "Iniciar sesión"},
		{"result right after login", true, "/wizard/result", url.Values{"result": {"ok"}}, "Seleccione un área"},
		{"description right after login", true, "/wizard/description", url.Values{"description": {"Muro"}}, "Seleccione un área"},
		{"process right after login", true, "/wizard/process",
			url.Values{"area": {"arrime"}, "process": {"inspeccion"}, "subprocess": {"revision"}}, "Seleccione un área"},
		{"login twice", true, "/wizard/login", url.Values{"username": {"user"}, "password": {"123456"}}, "Seleccione un área"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			b := newBrowser(t, srv)
			if tc.loggedIn {
				b.login()
			}

			status, body := b.post(tc.path, tc.form)
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Contains(t, body, "Esta acción no está disponible en la pantalla actual")
			assert.Contains(t, body, tc.screen)

			status, body = b.get("/wizard")
			require.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, tc.screen, "the session stays where it was")
		})
	}

	t.Run("upload before description", func(t *testing.T) {
		srv := newTestServer(t)
		b := newBrowser(t, srv)
		b.login()

		status, body := b.upload("photo", "frente.jpg", minimalJPEG, true)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "Esta acción no está disponible en la pantalla actual")
		assert.NotContains(t, body, "frente.jpg")
	})
}

func TestIntegration_AttachmentsArePrivateToSession(t *testing.T) {
	srv := newTestServer(t)
	alice := newBrowser(t, srv)
	alice.login()
	alice.post("/wizard/area", url.Values{"area": {"arrime"}})
	alice.post("/wizard/process", url.Values{"area": {"arrime"}, "process": {"inspeccion"}, "subprocess": {"revision"}})

	_, body := alice.upload("photo", "frente.jpg", minimalJPEG, true)
	link := regexp.MustCompile(`/attachments/arrime/[0-9a-f-]+`).FindString(body)
	require.NotEmpty(t, link)

	status, _ := alice.get(link)
	assert.Equal(t, http.StatusOK, status)

	bob := newBrowser(t, srv)
	status, _ = bob.get(link)
	assert.Equal(t, http.StatusNotFound, status)

	bob.login()
	status, _ = bob.get(link)
	assert.Equal(t, http.StatusNotFound, status, "a signed-in session still needs to be working on the area")
}
