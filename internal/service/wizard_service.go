package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vbonduro/areawizard/internal/area"
	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/filestore"
	"github.com/vbonduro/areawizard/internal/flow"
)

// ErrAttachmentNotFound is returned when downloading an unknown attachment.
var ErrAttachmentNotFound = errors.New("attachment not found")

// areaRegistry is the subset of area.Registry that WizardService requires.
type areaRegistry interface {
	ListAreas(ctx context.Context) []domain.Area
	Get(ctx context.Context, id string) (domain.Area, error)
	ResolveAreaName(ctx context.Context, id string) string
	CreateDynamicArea(ctx context.Context, name string) (domain.Area, error)
}

// attachmentLedger is the subset of area.Ledger that WizardService requires.
type attachmentLedger interface {
	Add(ctx context.Context, areaID string, in area.NewAttachment) (domain.Attachment, error)
	Remove(ctx context.Context, areaID, attachmentID string) (domain.Attachment, bool)
	Get(ctx context.Context, areaID, attachmentID string) (domain.Attachment, bool)
	List(ctx context.Context, areaID string) []domain.Attachment
	Stats(ctx context.Context, areaID string) domain.AttachmentStats
	Move(ctx context.Context, from, to string) int
	Clear(ctx context.Context, areaID string)
}

// areaDataStore is the subset of area.DataStore that WizardService requires.
type areaDataStore interface {
	Merge(ctx context.Context, areaID string, partial domain.AreaData) domain.AreaData
	Get(ctx context.Context, areaID string) domain.AreaData
}

type Options struct {
	// MinNewAreaAttachments is how many attachments a new area needs before
	// it can be created.
	MinNewAreaAttachments int
	MaxDescriptionLen     int
	MaxResultLen          int
	MaxAttachmentBytes    int64
}

func DefaultOptions() Options {
	return Options{
		MinNewAreaAttachments: 2,
		MaxDescriptionLen:     1000,
		MaxResultLen:          500,
		MaxAttachmentBytes:    50 * 1024 * 1024,
	}
}

// WizardService implements the submit logic of every screen on top of a
// session's flow.Controller. It is shared by all sessions.
type WizardService struct {
	areas     areaRegistry
	ledger    attachmentLedger
	areaData  areaDataStore
	files     filestore.Store
	auth      Authenticator
	submitter Submitter
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func NewWizardService(
	areas areaRegistry,
	ledger attachmentLedger,
	areaData areaDataStore,
	files filestore.Store,
	auth Authenticator,
	submitter Submitter,
	opts Options,
	logger *slog.Logger,
) *WizardService {
	return &WizardService{
		areas:     areas,
		ledger:    ledger,
		areaData:  areaData,
		files:     files,
		auth:      auth,
		submitter: submitter,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *WizardService) Options() Options { return s.opts }

func (s *WizardService) Areas(ctx context.Context) []domain.Area {
	return s.areas.ListAreas(ctx)
}

// AreaName resolves an area id to its display name.
func (s *WizardService) AreaName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	return s.areas.ResolveAreaName(ctx, id)
}

// ProcessAreas lists the areas selectable on the process screen, which
// excludes the "not available" sentinel.
func (s *WizardService) ProcessAreas(ctx context.Context) []domain.Area {
	all := s.areas.ListAreas(ctx)
	out := make([]domain.Area, 0, len(all))
	for _, a := range all {
		if !area.IsNewAreaSentinel(a.ID) {
			out = append(out, a)
		}
	}
	return out
}

func (s *WizardService) Login(ctx context.Context, c *flow.Controller, username, password string) error {
	return s.step(ctx, c, flow.ScreenLogin, func() error { return s.login(ctx, c, username, password) })
}

func (s *WizardService) login(ctx context.Context, c *flow.Controller, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if utf8.RuneCountInString(username) < 3 {
		return invalid("username", "El usuario debe tener al menos 3 caracteres")
	}
	if utf8.RuneCountInString(password) < 6 {
		return invalid("password", "La contraseña debe tener al menos 6 caracteres")
	}

	if err := s.auth.Authenticate(ctx, username, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected", "username", username)
			return invalid("password", "Usuario o contraseña incorrectos")
		}
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	c.SetCurrentUser(ctx, username)
	s.logger.Info("login succeeded", "username", username, "session_id", c.SessionID())
	return c.NavigateTo(ctx, flow.ScreenAreaSelection, flow.LoginPayload{Username: username})
}

// SelectArea records the chosen area. The "not available" sentinel skips the
// process screen and starts the new-area path on the description screen.
func (s *WizardService) SelectArea(ctx context.Context, c *flow.Controller, areaID string) error {
	return s.step(ctx, c, flow.ScreenAreaSelection, func() error { return s.selectArea(ctx, c, areaID) })
}

func (s *WizardService) selectArea(ctx context.Context, c *flow.Controller, areaID string) error {
	areaID = strings.TrimSpace(areaID)
	if areaID == "" {
		return invalid("area", "Por favor, seleccione un área")
	}
	selected, err := s.areas.Get(ctx, areaID)
	if err != nil {
		if errors.Is(err, area.ErrUnknownArea) {
			return invalid("area", "El área seleccionada no existe")
		}
		return err
	}

	s.discardPendingUploads(ctx, c)
	for _, screen := range []flow.Screen{flow.ScreenDescription, flow.ScreenResult} {
		if err := c.ClearScreenData(ctx, screen); err != nil {
			return err
		}
	}

	payload := flow.AreaSelectionPayload{
		SelectedArea: selected.ID,
		AreaName:     selected.Name,
		IsNewArea:    area.IsNewAreaSentinel(selected.ID),
	}
	if payload.IsNewArea {
		if err := c.ClearScreenData(ctx, flow.ScreenProcessSelection); err != nil {
			return err
		}
		return c.NavigateTo(ctx, flow.ScreenDescription, payload)
	}
	return c.NavigateTo(ctx, flow.ScreenProcessSelection, payload)
}

// ProcessDefaults returns the values the process form starts with: whatever
// was stored last, with the area preselected from the area screen.
func (s *WizardService) ProcessDefaults(ctx context.Context, c *flow.Controller) flow.ProcessSelectionPayload {
	p := load[flow.ProcessSelectionPayload](ctx, c)
	if p.Area == "" {
		if sel := load[flow.AreaSelectionPayload](ctx, c); !sel.IsNewArea {
			p.Area = sel.SelectedArea
		}
	}
	if p.Process == "" {
		if opts := ProcessOptions(p.Area); len(opts) > 0 {
			p.Process = opts[0].Value
		}
	}
	return p
}

type ProcessInput struct {
	Area       string
	Process    string
	Subprocess string
}

func (s *WizardService) SelectProcess(ctx context.Context, c *flow.Controller, in ProcessInput) error {
	return s.step(ctx, c, flow.ScreenProcessSelection, func() error { return s.selectProcess(ctx, c, in) })
}

func (s *WizardService) selectProcess(ctx context.Context, c *flow.Controller, in ProcessInput) error {
	in.Area = strings.TrimSpace(in.Area)
	in.Process = strings.TrimSpace(in.Process)
	in.Subprocess = strings.TrimSpace(in.Subprocess)

	if in.Area == "" || in.Process == "" || in.Subprocess == "" {
		return invalid("", "Por favor, complete todos los campos")
	}
	if area.IsNewAreaSentinel(in.Area) {
		return invalid("area", "El área seleccionada no existe")
	}
	if _, err := s.areas.Get(ctx, in.Area); err != nil {
		if errors.Is(err, area.ErrUnknownArea) {
			return invalid("area", "El área seleccionada no existe")
		}
		return err
	}
	if !hasOption(ProcessOptions(in.Area), in.Process) {
		return invalid("process", "Proceso no válido para el área")
	}
	if !hasOption(SubprocessOptions(in.Process), in.Subprocess) {
		return invalid("subprocess", "Sub-proceso no válido para el proceso")
	}

	payload := flow.ProcessSelectionPayload{Area: in.Area, Process: in.Process, Subprocess: in.Subprocess}
	if err := s.submitter.Submit(ctx, "process", payload); err != nil {
		return s.submitFailed("process", err)
	}
	return c.NavigateTo(ctx, flow.ScreenDescription, payload)
}

// WorkingArea returns the area that description-screen uploads belong to.
// pending is true on the new-area path before the area exists, in which case
// id is the temporary placeholder (empty until the first upload).
func (s *WizardService) WorkingArea(ctx context.Context, c *flow.Controller) (id string, pending bool) {
	if sel := load[flow.AreaSelectionPayload](ctx, c); sel.IsNewArea {
		d := load[flow.DescriptionPayload](ctx, c)
		if d.NewAreaID != "" {
			return d.NewAreaID, false
		}
		return d.TempAreaID, true
	}
	return load[flow.ProcessSelectionPayload](ctx, c).Area, false
}

// ensureWorkingArea is WorkingArea, but derives and remembers a temporary id
// from the current time when a pending new area has none yet.
// Callers hold the session lock so concurrent first uploads share one id.
func (s *WizardService) ensureWorkingArea(ctx context.Context, c *flow.Controller) (string, error) {
	id, pending := s.WorkingArea(ctx, c)
	if id != "" || !pending {
		return id, nil
	}
	id = fmt.Sprintf("temp-%d", s.now().UnixMilli())
	if err := c.Save(ctx, flow.DescriptionPayload{TempAreaID: id}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *WizardService) Attachments(ctx context.Context, c *flow.Controller) []domain.Attachment {
	id, _ := s.WorkingArea(ctx, c)
	if id == "" {
		return nil
	}
	return s.ledger.List(ctx, id)
}

// Upload is one file handed to the description screen.
type Upload struct {
	Name string
	Kind domain.AttachmentKind
	Data []byte
}

func (s *WizardService) AddAttachment(ctx context.Context, c *flow.Controller, up Upload) (domain.Attachment, error) {
	var rec domain.Attachment
	err := s.step(ctx, c, flow.ScreenDescription, func() error {
		var err error
		rec, err = s.addAttachment(ctx, c, up)
		return err
	})
	return rec, err
}

func (s *WizardService) addAttachment(ctx context.Context, c *flow.Controller, up Upload) (domain.Attachment, error) {
	if !up.Kind.Valid() {
		return domain.Attachment{}, invalid("kind", "Tipo de adjunto desconocido")
	}
	if len(up.Data) == 0 {
		return domain.Attachment{}, invalid("file", "Por favor, seleccione un archivo")
	}
	if s.opts.MaxAttachmentBytes > 0 && int64(len(up.Data)) > s.opts.MaxAttachmentBytes {
		return domain.Attachment{}, invalid("file", "El archivo supera el tamaño máximo permitido")
	}
	mimeType, ok := filestore.AllowedMIME(up.Kind, up.Data)
	if !ok {
		switch up.Kind {
		case domain.KindAudio:
			return domain.Attachment{}, invalid("file", "Por favor, seleccione un archivo de audio")
		default:
			return domain.Attachment{}, invalid("file", "Por favor, seleccione un archivo de imagen")
		}
	}

	areaID, err := s.ensureWorkingArea(ctx, c)
	if err != nil {
		return domain.Attachment{}, err
	}
	if areaID == "" {
		return domain.Attachment{}, invalid("area", "Seleccione un área primero")
	}

	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = fmt.Sprintf("%s_%d", up.Kind, s.now().UnixMilli())
	}

	storageKey, err := s.files.Save(ctx, areaID, mimeType, bytes.NewReader(up.Data))
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("failed to save attachment content: %w", err)
	}

	rec, err := s.ledger.Add(ctx, areaID, area.NewAttachment{
		Name:       name,
		Kind:       up.Kind,
		MimeType:   mimeType,
		SizeBytes:  int64(len(up.Data)),
		StorageKey: storageKey,
	})
	if err != nil {
		if derr := s.files.Delete(ctx, storageKey); derr != nil {
			s.logger.Error("failed to roll back attachment content", "storage_key", storageKey, "error", derr)
		}
		return domain.Attachment{}, fmt.Errorf("failed to record attachment: %w", err)
	}

	s.syncAttachmentCount(ctx, c, areaID)
	s.logger.Info("attachment added", "area_id", areaID, "attachment_id", rec.ID, "kind", rec.Kind, "bytes", rec.SizeBytes)
	return rec, nil
}

// RemoveAttachment drops an attachment of the working area. Unknown ids are
// ignored.
func (s *WizardService) RemoveAttachment(ctx context.Context, c *flow.Controller, attachmentID string) error {
	return s.step(ctx, c, flow.ScreenDescription, func() error { return s.removeAttachment(ctx, c, attachmentID) })
}

func (s *WizardService) removeAttachment(ctx context.Context, c *flow.Controller, attachmentID string) error {
	areaID, _ := s.WorkingArea(ctx, c)
	if areaID == "" {
		return nil
	}
	rec, ok := s.ledger.Remove(ctx, areaID, attachmentID)
	if !ok {
		return nil
	}
	s.deleteContent(ctx, rec)
	s.syncAttachmentCount(ctx, c, areaID)
	return nil
}

// CanAccessArea reports whether the session is working on areaID, either
// uploading to it or reporting on it.
func (s *WizardService) CanAccessArea(ctx context.Context, c *flow.Controller, areaID string) bool {
	if areaID == "" {
		return false
	}
	if id, _ := s.WorkingArea(ctx, c); id == areaID {
		return true
	}
	id, _ := s.ResultArea(ctx, c)
	return id == areaID
}

// AttachmentContent opens the stored bytes of an attachment.
func (s *WizardService) AttachmentContent(ctx context.Context, areaID, attachmentID string) (domain.Attachment, io.ReadCloser, error) {
	rec, ok := s.ledger.Get(ctx, areaID, attachmentID)
	if !ok || rec.StorageKey == "" {
		return domain.Attachment{}, nil, ErrAttachmentNotFound
	}
	r, _, err := s.files.Get(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return domain.Attachment{}, nil, ErrAttachmentNotFound
		}
		return domain.Attachment{}, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return rec, r, nil
}

type DescriptionInput struct {
	// Title names the new area; ignored when describing an existing area.
	Title       string
	Description string
}

// SubmitDescription validates the description screen and moves on to the
// result screen. On the new-area path it creates the dynamic area and
// promotes the uploads made under the temporary id.
func (s *WizardService) SubmitDescription(ctx context.Context, c *flow.Controller, in DescriptionInput) error {
	return s.step(ctx, c, flow.ScreenDescription, func() error { return s.submitDescription(ctx, c, in) })
}

func (s *WizardService) submitDescription(ctx context.Context, c *flow.Controller, in DescriptionInput) error {
	description := strings.TrimSpace(in.Description)
	title := strings.TrimSpace(in.Title)

	if description == "" {
		return invalid("description", "Por favor, ingrese una descripción")
	}
	if max := s.opts.MaxDescriptionLen; max > 0 && utf8.RuneCountInString(description) > max {
		return invalid("description", fmt.Sprintf("La descripción no puede superar %d caracteres", max))
	}

	areaID, pending := s.WorkingArea(ctx, c)
	newAreaID := ""
	if pending {
		if title == "" {
			return invalid("title", "Por favor, ingrese un nombre para el área nueva")
		}
		count := 0
		if areaID != "" {
			count = s.ledger.Stats(ctx, areaID).Count
		}
		if count < s.opts.MinNewAreaAttachments {
			return invalid("attachments", fmt.Sprintf(
				"Se requieren al menos %d archivos adjuntos para crear un área nueva", s.opts.MinNewAreaAttachments))
		}

		created, err := s.areas.CreateDynamicArea(ctx, title)
		if err != nil {
			if errors.Is(err, area.ErrInvalidName) {
				return invalid("title", "El nombre del área no es válido")
			}
			return fmt.Errorf("failed to create area: %w", err)
		}
		s.ledger.Move(ctx, areaID, created.ID)
		areaID, newAreaID = created.ID, created.ID
	} else if areaID == "" {
		return invalid("area", "Seleccione un área primero")
	} else if sel := load[flow.AreaSelectionPayload](ctx, c); sel.IsNewArea {
		// Resubmitting after the new area was already created.
		newAreaID = areaID
	}

	count := s.ledger.Stats(ctx, areaID).Count
	s.areaData.Merge(ctx, areaID, domain.AreaData{Description: &description, AttachmentCount: &count})

	return c.NavigateTo(ctx, flow.ScreenResult, flow.DescriptionPayload{
		Title:       title,
		Description: description,
		Attachments: count,
		NewAreaID:   newAreaID,
	})
}

// ResultArea returns the area the result screen reports on.
func (s *WizardService) ResultArea(ctx context.Context, c *flow.Controller) (id, name string) {
	if sel := load[flow.AreaSelectionPayload](ctx, c); sel.IsNewArea {
		id = load[flow.DescriptionPayload](ctx, c).NewAreaID
	} else {
		id = load[flow.ProcessSelectionPayload](ctx, c).Area
	}
	if id == "" {
		return "", ""
	}
	return id, s.areas.ResolveAreaName(ctx, id)
}

// ResultDraft returns previously entered result values, preferring what is
// stored for the area over the session copy.
func (s *WizardService) ResultDraft(ctx context.Context, c *flow.Controller) flow.ResultPayload {
	if id, _ := s.ResultArea(ctx, c); id != "" {
		d := s.areaData.Get(ctx, id)
		if d.Result != nil || d.Observation != nil {
			return flow.ResultPayload{Result: deref(d.Result), Observation: deref(d.Observation)}
		}
	}
	return load[flow.ResultPayload](ctx, c)
}

type ResultInput struct {
	Result      string
	Observation string
}

// SaveDraft stores non-empty result values in the session without
// submitting. It reports whether anything was saved.
func (s *WizardService) SaveDraft(ctx context.Context, c *flow.Controller, in ResultInput) (bool, error) {
	r, o := s.cleanResult(in)
	if r == "" && o == "" {
		return false, nil
	}
	err := s.step(ctx, c, flow.ScreenResult, func() error {
		return c.SaveScreenData(ctx, flow.ScreenResult, flow.Record{"result": r, "observation": o})
	})
	return err == nil, err
}

// SubmitResult validates and submits the final screen and returns the
// summary of the whole run. The session stays on the result screen.
func (s *WizardService) SubmitResult(ctx context.Context, c *flow.Controller, in ResultInput) (*Summary, error) {
	var summary *Summary
	err := s.step(ctx, c, flow.ScreenResult, func() error {
		var err error
		summary, err = s.submitResult(ctx, c, in)
		return err
	})
	return summary, err
}

func (s *WizardService) submitResult(ctx context.Context, c *flow.Controller, in ResultInput) (*Summary, error) {
	r, o := s.cleanResult(in)
	if r == "" && o == "" {
		return nil, invalid("result", "Por favor, ingrese al menos un resultado o una observación")
	}

	areaID, _ := s.ResultArea(ctx, c)
	if err := s.submitter.Submit(ctx, "result", flow.ResultPayload{Result: r, Observation: o}); err != nil {
		return nil, s.submitFailed("result", err)
	}

	if areaID != "" {
		s.areaData.Merge(ctx, areaID, domain.AreaData{Result: &r, Observation: &o})
	}
	if err := c.SaveScreenData(ctx, flow.ScreenResult, flow.Record{"result": r, "observation": o}); err != nil {
		return nil, err
	}

	s.logger.Info("wizard completed", "session_id", c.SessionID(), "area_id", areaID)
	summary := s.Summary(ctx, c)
	return &summary, nil
}

// Summary collects everything entered during the run.
type Summary struct {
	Username         string
	SelectedAreaName string
	AreaID           string
	AreaName         string
	Process          string
	Subprocess       string
	Description      string
	Attachments      domain.AttachmentStats
	Result           string
	Observation      string
	LastUpdated      time.Time
}

func (s *WizardService) Summary(ctx context.Context, c *flow.Controller) Summary {
	login := load[flow.LoginPayload](ctx, c)
	sel := load[flow.AreaSelectionPayload](ctx, c)
	proc := load[flow.ProcessSelectionPayload](ctx, c)
	desc := load[flow.DescriptionPayload](ctx, c)
	res := load[flow.ResultPayload](ctx, c)

	sum := Summary{
		Username:         login.Username,
		SelectedAreaName: sel.AreaName,
		Process:          proc.Process,
		Subprocess:       proc.Subprocess,
		Description:      desc.Description,
		Result:           res.Result,
		Observation:      res.Observation,
		Attachments:      domain.AttachmentStats{CountByKind: map[domain.AttachmentKind]int{}},
	}
	if sum.Username == "" {
		sum.Username = c.CurrentUser(ctx)
	}

	sum.AreaID, sum.AreaName = s.ResultArea(ctx, c)
	if sum.AreaID != "" {
		data := s.areaData.Get(ctx, sum.AreaID)
		if data.Description != nil {
			sum.Description = *data.Description
		}
		sum.LastUpdated = data.LastUpdated
		sum.Attachments = s.ledger.Stats(ctx, sum.AreaID)
	}
	return sum
}

// Restart discards the session, including uploads made for a new area that
// was never created.
func (s *WizardService) Restart(ctx context.Context, c *flow.Controller) {
	_ = c.Exclusive(func() error {
		s.discardPendingUploads(ctx, c)
		c.Restart(ctx)
		return nil
	})
}

// step runs fn under the session lock, provided the session is on screen and,
// past the login screen, has a signed-in user. Submitting any other screen is
// rejected without touching the wizard state.
func (s *WizardService) step(ctx context.Context, c *flow.Controller, screen flow.Screen, fn func() error) error {
	return c.Exclusive(func() error {
		if current := c.Current(); current != screen {
			s.logger.Warn("out of order submit rejected",
				"session_id", c.SessionID(), "screen", string(screen), "current", string(current))
			return invalid("screen", "Esta acción no está disponible en la pantalla actual")
		}
		if screen != flow.ScreenLogin && c.CurrentUser(ctx) == "" {
			s.logger.Warn("submit without user rejected", "session_id", c.SessionID(), "screen", string(screen))
			return invalid("screen", "Por favor, inicie sesión")
		}
		return fn()
	})
}

func (s *WizardService) discardPendingUploads(ctx context.Context, c *flow.Controller) {
	id, pending := s.WorkingArea(ctx, c)
	if !pending || id == "" {
		return
	}
	for _, rec := range s.ledger.List(ctx, id) {
		s.deleteContent(ctx, rec)
	}
	s.ledger.Clear(ctx, id)
	s.logger.Info("discarded pending uploads", "temp_area_id", id)
}

func (s *WizardService) deleteContent(ctx context.Context, rec domain.Attachment) {
	if rec.StorageKey == "" {
		return
	}
	if err := s.files.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, filestore.ErrNotFound) {
		s.logger.Error("failed to delete attachment content", "storage_key", rec.StorageKey, "error", err)
	}
}

func (s *WizardService) syncAttachmentCount(ctx context.Context, c *flow.Controller, areaID string) {
	count := s.ledger.Stats(ctx, areaID).Count
	if err := c.SaveScreenData(ctx, flow.ScreenDescription, flow.Record{"attachments": count}); err != nil {
		s.logger.Warn("failed to update attachment count", "area_id", areaID, "error", err)
	}
}

func (s *WizardService) cleanResult(in ResultInput) (string, string) {
	return truncate(strings.TrimSpace(in.Result), s.opts.MaxResultLen),
		truncate(strings.TrimSpace(in.Observation), s.opts.MaxResultLen)
}

func (s *WizardService) submitFailed(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Warn("submission failed", "op", op, "error", err)
	return &SubmitError{Op: op, Err: err}
}

// load decodes the stored payload of T's screen, or returns the zero T.
func load[T flow.Payload](ctx context.Context, c *flow.Controller) T {
	var zero T
	p, err := flow.Decode[T](c.ScreenData(ctx, zero.Screen()))
	if err != nil {
		return zero
	}
	return p
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
