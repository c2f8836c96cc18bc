package devgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/evcraddock/fieldtrack/internal/attendance"
	"github.com/evcraddock/fieldtrack/internal/crm"
	"github.com/evcraddock/fieldtrack/internal/gateway"
)

// Messages returned with success=false.
const (
	msgInvalidEmployee   = "Invalid Employee ID"
	msgAdminRequired     = "Admin access required"
	msgAlreadyMarked     = "Attendance already marked for today"
	msgInvalidStatus     = "Invalid status"
	msgInvalidType       = "Invalid interaction type"
	msgClientNotFound    = "Client not found"
	msgNotOwner          = "You can only update your own clients"
	msgInvalidImage      = "Invalid image data"
	msgUnknownType       = "Unknown request type"
	msgInternal          = "Internal server error"
	msgLocationRequired  = "Location is required for Present"
	msgMissingAttendance = "Date and status are required"
)

type handlerFunc func(s *Server, c *gin.Context, raw []byte)

var handlers = map[string]handlerFunc{
	gateway.TypeAttendance:            (*Server).handleAttendance,
	gateway.TypeLogin:                 (*Server).handleIdentity,
	gateway.TypeWhoAmI:                (*Server).handleIdentity,
	gateway.TypeGetMyClients:          (*Server).handleMyClients,
	gateway.TypeGetAllClientsAdmin:    (*Server).handleAllClients,
	gateway.TypeGetAllAttendanceAdmin: (*Server).handleAllAttendance,
	gateway.TypeGetClientInteractions: (*Server).handleAllInteractions,
	gateway.TypeAddClient:             (*Server).handleAddClient,
	gateway.TypeUpdateClientStatus:    (*Server).handleUpdateStatus,
	gateway.TypeAddClientInteraction:  (*Server).handleAddInteraction,
	gateway.TypeUploadClientImage:     (*Server).handleUploadImage,
	gateway.TypeDownloadClientsCSV:    (*Server).handleClientsCSV,
}

// handleExec is the single endpoint. The body is JSON regardless of the
// declared content type; its "type" field selects the handler.
func (s *Server) handleExec(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "Request too large"})
		return
	}

	var req struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid JSON body"})
		return
	}
	c.Set(requestTypeKey, req.Type)

	h, ok := handlers[req.Type]
	if !ok {
		s.reject(c, req.Type, msgUnknownType)
		return
	}
	h(s, c, raw)
}

func (s *Server) ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	s.metrics.operation(c.GetString(requestTypeKey), "ok")
	c.JSON(http.StatusOK, body)
}

func (s *Server) reject(c *gin.Context, typ, message string) {
	s.metrics.operation(typ, "rejected")
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	s.metrics.operation(c.GetString(requestTypeKey), "error")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": msgInternal})
}

func (s *Server) decode(c *gin.Context, raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		s.metrics.operation(c.GetString(requestTypeKey), "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) publish(ctx context.Context, name, employeeID string, data interface{}) {
	e := Event{Name: name, EmployeeID: employeeID, At: s.now().UTC(), Data: data}
	if err := s.events.Publish(ctx, e); err != nil {
		slog.Warn("publishing event", "event", name, "error", err)
	}
}

// identity looks an employee up through the cache. A nil identity with a
// nil error means the employee is unknown.
func (s *Server) identity(ctx context.Context, employeeID string) (*gateway.Identity, error) {
	if employeeID == "" {
		return nil, nil
	}
	if id, ok := s.cache.Get(ctx, employeeID); ok {
		return id, nil
	}
	id, err := s.store.Employee(ctx, employeeID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, id)
	return id, nil
}

// requireEmployee resolves employeeID, writing the rejection itself when
// it is unknown. adminOnly additionally requires the admin role.
func (s *Server) requireEmployee(c *gin.Context, employeeID string, adminOnly bool) (*gateway.Identity, bool) {
	typ := c.GetString(requestTypeKey)
	id, err := s.identity(c.Request.Context(), strings.TrimSpace(employeeID))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if id == nil {
		s.reject(c, typ, msgInvalidEmployee)
		return nil, false
	}
	if adminOnly && !id.IsAdmin() {
		s.reject(c, typ, msgAdminRequired)
		return nil, false
	}
	return id, true
}

type employeeBody struct {
	EmployeeID string `json:"employeeId"`
}

func (s *Server) handleIdentity(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	id, ok := s.requireEmployee(c, req.EmployeeID, false)
	if !ok {
		return
	}
	s.ok(c, gin.H{"employeeId": id.EmployeeID, "name": id.Name, "role": id.Role})
}

func (s *Server) handleAttendance(c *gin.Context, raw []byte) {
	var r attendance.Record
	if !s.decode(c, raw, &r) {
		return
	}
	if _, ok := s.requireEmployee(c, r.EmployeeID, false); !ok {
		return
	}

	typ := gateway.TypeAttendance
	if r.Date == "" || r.Status == "" {
		s.reject(c, typ, msgMissingAttendance)
		return
	}
	if !r.Status.IsValid() {
		s.reject(c, typ, msgInvalidStatus)
		return
	}
	if r.Status.RequiresLocation() && (r.Latitude == nil || r.Longitude == nil) {
		s.reject(c, typ, msgLocationRequired)
		return
	}

	err := s.store.InsertAttendance(c.Request.Context(), &r)
	if errors.Is(err, ErrDuplicateAttendance) {
		s.reject(c, typ, msgAlreadyMarked)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c.Request.Context(), EventAttendanceMarked, r.EmployeeID, r)
	s.ok(c, gin.H{"message": "Attendance marked successfully"})
}

func (s *Server) handleMyClients(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	id, ok := s.requireEmployee(c, req.EmployeeID, false)
	if !ok {
		return
	}
	s.respondClients(c, id.EmployeeID)
}

func (s *Server) handleAllClients(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	if _, ok := s.requireEmployee(c, req.EmployeeID, true); !ok {
		return
	}
	s.respondClients(c, "")
}

func (s *Server) respondClients(c *gin.Context, owner string) {
	clients, err := s.store.ListClients(c.Request.Context(), owner)
	if err != nil {
		s.fail(c, err)
		return
	}
	if clients == nil {
		clients = []*crm.Client{}
	}
	s.ok(c, gin.H{"clients": clients})
}

func (s *Server) handleAllAttendance(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	if _, ok := s.requireEmployee(c, req.EmployeeID, true); !ok {
		return
	}

	rows, err := s.store.ListAttendance(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if rows == nil {
		s.ok(c, gin.H{"records": []struct{}{}})
		return
	}
	s.ok(c, gin.H{"records": rows})
}

func (s *Server) handleAllInteractions(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	if _, ok := s.requireEmployee(c, req.EmployeeID, true); !ok {
		return
	}

	rows, err := s.store.ListInteractions(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if rows == nil {
		s.ok(c, gin.H{"interactions": []struct{}{}})
		return
	}
	s.ok(c, gin.H{"interactions": rows})
}

func (s *Server) handleAddClient(c *gin.Context, raw []byte) {
	var req struct {
		EmployeeID string `json:"employeeId"`
		crm.NewClient
		CreatedAt time.Time `json:"createdAt"`
	}
	if !s.decode(c, raw, &req) {
		return
	}
	if _, ok := s.requireEmployee(c, req.EmployeeID, false); !ok {
		return
	}

	nc := req.NewClient.Trimmed()
	if missing := nc.MissingFields(); len(missing) > 0 {
		s.reject(c, gateway.TypeAddClient, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	id := uuid.NewString()
	if err := s.store.InsertClient(c.Request.Context(), id, req.EmployeeID, nc, createdAt); err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c.Request.Context(), EventClientCreated, req.EmployeeID, gin.H{"clientId": id, "businessName": nc.BusinessName})
	s.ok(c, gin.H{"clientId": id, "message": "Client added successfully"})
}

// checkOwner rejects changes to another employee's client unless the
// caller is an admin.
func (s *Server) checkOwner(c *gin.Context, caller *gateway.Identity, clientID string) bool {
	typ := c.GetString(requestTypeKey)
	owner, err := s.store.ClientOwner(c.Request.Context(), clientID)
	if errors.Is(err, ErrNotFound) {
		s.reject(c, typ, msgClientNotFound)
		return false
	}
	if err != nil {
		s.fail(c, err)
		return false
	}
	if owner != caller.EmployeeID && !caller.IsAdmin() {
		s.reject(c, typ, msgNotOwner)
		return false
	}
	return true
}

func (s *Server) handleUpdateStatus(c *gin.Context, raw []byte) {
	var u crm.StatusUpdate
	if !s.decode(c, raw, &u) {
		return
	}
	caller, ok := s.requireEmployee(c, u.EmployeeID, false)
	if !ok {
		return
	}
	if !u.Status.IsValid() {
		s.reject(c, gateway.TypeUpdateClientStatus, msgInvalidStatus)
		return
	}
	if !s.checkOwner(c, caller, u.ClientID) {
		return
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = s.now()
	}

	err := s.store.UpdateClientStatus(c.Request.Context(), u)
	if errors.Is(err, ErrNotFound) {
		s.reject(c, gateway.TypeUpdateClientStatus, msgClientNotFound)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c.Request.Context(), EventClientStatus, u.EmployeeID, u)
	s.ok(c, gin.H{"message": "Status updated successfully"})
}

func (s *Server) handleAddInteraction(c *gin.Context, raw []byte) {
	var in crm.Interaction
	if !s.decode(c, raw, &in) {
		return
	}
	caller, ok := s.requireEmployee(c, in.EmployeeID, false)
	if !ok {
		return
	}
	if !in.InteractionType.IsValid() {
		s.reject(c, gateway.TypeAddClientInteraction, msgInvalidType)
		return
	}
	if !s.checkOwner(c, caller, in.ClientID) {
		return
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}

	id := uuid.NewString()
	err := s.store.InsertInteraction(c.Request.Context(), id, &in)
	if errors.Is(err, ErrNotFound) {
		s.reject(c, gateway.TypeAddClientInteraction, msgClientNotFound)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	in.InteractionID = id

	s.publish(c.Request.Context(), EventInteractionAdded, in.EmployeeID, in)
	s.ok(c, gin.H{"interactionId": id, "message": "Interaction recorded"})
}

func (s *Server) handleUploadImage(c *gin.Context, raw []byte) {
	var req struct {
		ClientID   string `json:"clientId"`
		EmployeeID string `json:"employeeId"`
		Base64     string `json:"base64"`
	}
	if !s.decode(c, raw, &req) {
		return
	}
	caller, ok := s.requireEmployee(c, req.EmployeeID, false)
	if !ok {
		return
	}

	mime, data, err := parseDataURL(req.Base64)
	if err != nil {
		s.reject(c, gateway.TypeUploadClientImage, msgInvalidImage)
		return
	}
	if !s.checkOwner(c, caller, req.ClientID) {
		return
	}

	url := s.imageURL(c, req.ClientID)
	err = s.store.PutImage(c.Request.Context(), req.ClientID, mime, data, url)
	if errors.Is(err, ErrNotFound) {
		s.reject(c, gateway.TypeUploadClientImage, msgClientNotFound)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.publish(c.Request.Context(), EventClientImageUpdated, req.EmployeeID, gin.H{"clientId": req.ClientID, "imageUrl": url})
	s.ok(c, gin.H{"imageUrl": url})
}

func (s *Server) imageURL(c *gin.Context, clientID string) string {
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return strings.TrimRight(base, "/") + "/images/" + clientID
}

// parseDataURL decodes "data:<mime>;base64,<payload>". A bare base64
// payload is accepted and its type sniffed.
func parseDataURL(s string) (string, []byte, error) {
	mime := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, rest, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", nil, errors.New("not a base64 data URL")
		}
		mime = strings.TrimSuffix(meta, ";base64")
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding image: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty image")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("not an image: %s", mime)
	}
	return mime, data, nil
}

var csvHeader = []string{"Client ID", "Employee ID", "Business Name", "Industry", "Contact Person", "Phone", "Email", "Location", "Status", "Description", "Updated At", "Latitude", "Longitude"}

func (s *Server) handleClientsCSV(c *gin.Context, raw []byte) {
	var req employeeBody
	if !s.decode(c, raw, &req) {
		return
	}
	if _, ok := s.requireEmployee(c, req.EmployeeID, true); !ok {
		return
	}

	clients, err := s.store.ListClients(c.Request.Context(), "")
	if err != nil {
		s.fail(c, err)
		return
	}

	rows := [][]string{csvHeader}
	for _, cl := range clients {
		rows = append(rows, []string{
			cl.ClientID, cl.EmployeeID, cl.BusinessName, cl.Industry, cl.ContactPerson,
			cl.Phone, cl.Email, cl.Location, string(cl.Status), cl.Description,
			cl.UpdatedAt.UTC().Format(time.RFC3339), formatCoord(cl.Latitude), formatCoord(cl.Longitude),
		})
	}

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(rows); err != nil {
		s.fail(c, fmt.Errorf("writing csv: %w", err))
		return
	}

	s.metrics.operation(gateway.TypeDownloadClientsCSV, "ok")
	c.Header("Content-Disposition", `attachment; filename="clients.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
