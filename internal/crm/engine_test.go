package crm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/fieldtrack/internal/geo"
	"github.com/evcraddock/fieldtrack/internal/workflow"
)

type fakeGateway struct {
	clients      []*Client
	addCalls     int
	statusCalls  int
	interactions []*Interaction
	uploads      []string
	lastCreate   NewClient
	lastUpdate   StatusUpdate
	imageURL     string
	err          error
	listErr      error
}

func (f *fakeGateway) GetMyClients(ctx context.Context, employeeID string) ([]*Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.clients, nil
}

func (f *fakeGateway) AddClient(ctx context.Context, employeeID string, nc NewClient, createdAt time.Time) (string, error) {
	f.addCalls++
	f.lastCreate = nc
	if f.err != nil {
		return "", f.err
	}
	return "C100", nil
}

func (f *fakeGateway) UpdateClientStatus(ctx context.Context, u StatusUpdate) error {
	f.statusCalls++
	f.lastUpdate = u
	return f.err
}

func (f *fakeGateway) AddClientInteraction(ctx context.Context, in *Interaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.interactions = append(f.interactions, in)
	return "I1", nil
}

func (f *fakeGateway) UploadClientImage(ctx context.Context, clientID, employeeID, dataURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, dataURL)
	return f.imageURL, nil
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(gw *fakeGateway, loc geo.Locator) *Engine {
	return NewEngine(gw, Config{
		Locator:    loc,
		FixTimeout: time.Second,
		Now:        func() time.Time { return fixedNow },
	})
}

func validClient() NewClient {
	return NewClient{
		BusinessName: "Sharma Traders",
		Industry:     "Retail",
		Phone:        "9999999999",
		Location:     "Connaught Place",
	}
}

func TestCreate(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)

	c, err := e.Create(context.Background(), "E1", validClient())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ClientID != "C100" {
		t.Errorf("clientId = %q, want C100", c.ClientID)
	}
	if c.Status != LeadGenerated {
		t.Errorf("status = %q, want %q", c.Status, LeadGenerated)
	}
	if !c.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updatedAt = %v, want %v", c.UpdatedAt, fixedNow)
	}
	if c.EmployeeID != "E1" {
		t.Errorf("employeeId = %q", c.EmployeeID)
	}

	got, ok := e.Snapshot().Get("C100")
	if !ok {
		t.Fatal("expected created client in snapshot")
	}
	if got.BusinessName != "Sharma Traders" {
		t.Errorf("snapshot businessName = %q", got.BusinessName)
	}
}

func TestCreateMissingFields(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)

	_, err := e.Create(context.Background(), "E1", NewClient{BusinessName: "  ", Industry: "Retail"})
	if !errors.Is(err, workflow.ErrMissingRequiredField) {
		t.Fatalf("err = %v, want MissingRequiredField", err)
	}
	for _, field := range []string{"businessName", "phone", "location"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %s", err.Error(), field)
		}
	}
	if gw.addCalls != 0 {
		t.Errorf("add calls = %d, want 0", gw.addCalls)
	}
}

func TestCreateRequireLocation(t *testing.T) {
	gw := &fakeGateway{}
	e := NewEngine(gw, Config{
		Locator:         geo.LocatorFunc(func(ctx context.Context) (geo.Coordinate, error) { return geo.Coordinate{}, geo.ErrPermissionDenied }),
		RequireLocation: true,
		Now:             func() time.Time { return fixedNow },
	})

	_, err := e.Create(context.Background(), "E1", validClient())
	if !errors.Is(err, workflow.ErrLocationRequired) {
		t.Fatalf("err = %v, want LocationRequired", err)
	}
	if gw.addCalls != 0 {
		t.Errorf("add calls = %d, want 0", gw.addCalls)
	}

	e = NewEngine(gw, Config{
		Locator:         geo.Static(geo.Coordinate{Latitude: 12.9, Longitude: 77.5}),
		RequireLocation: true,
	})
	c, err := e.Create(context.Background(), "E1", validClient())
	if err != nil {
		t.Fatalf("create with fix: %v", err)
	}
	if !c.HasGPS() || *gw.lastCreate.Latitude != 12.9 {
		t.Errorf("expected fix on created client, got %+v", gw.lastCreate)
	}
}

func TestCreateDropsCallerCoordinates(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)

	nc := validClient()
	lat, lng := 1.0, 2.0
	nc.Latitude, nc.Longitude = &lat, &lng
	if _, err := e.Create(context.Background(), "E1", nc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if gw.lastCreate.Latitude != nil {
		t.Error("expected coordinates only from a captured fix")
	}
}

func TestSetStatusAnyToAny(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)
	e.Snapshot().Replace([]*Client{{ClientID: "C1", BusinessName: "Acme", Status: Converted}})

	desc := "Reopened after renewal call"
	c, err := e.SetStatus(context.Background(), "C1", "E1", Contacted, &desc)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if c.Status != Contacted {
		t.Errorf("status = %q, want %q", c.Status, Contacted)
	}
	if c.Description != desc {
		t.Errorf("description = %q", c.Description)
	}
	if !c.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updatedAt = %v", c.UpdatedAt)
	}
	if gw.lastUpdate.Description == nil || *gw.lastUpdate.Description != desc {
		t.Error("expected description sent in the same call")
	}

	got, _ := e.Snapshot().Get("C1")
	if got.Status != Contacted || got.BusinessName != "Acme" {
		t.Errorf("snapshot not updated: %+v", got)
	}
}

func TestSetStatusNilDescriptionKeepsExisting(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)
	e.Snapshot().Replace([]*Client{{ClientID: "C1", Status: LeadGenerated, Description: "first visit"}})

	c, err := e.SetStatus(context.Background(), "C1", "E1", FollowUpRequired, nil)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if c.Description != "first visit" {
		t.Errorf("description = %q, want unchanged", c.Description)
	}
}

func TestSetStatusInvalid(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, nil)

	_, err := e.SetStatus(context.Background(), "C1", "E1", Status("Won"), nil)
	if !errors.Is(err, workflow.ErrInvalidStatus) {
		t.Fatalf("err = %v, want InvalidStatus", err)
	}
	if gw.statusCalls != 0 {
		t.Errorf("status calls = %d, want 0", gw.statusCalls)
	}
}

func TestSetStatusTransportFailure(t *testing.T) {
	remote := workflow.New(workflow.TransportFailure, "Client not found", nil)
	gw := &fakeGateway{err: remote}
	e := newTestEngine(gw, nil)
	e.Snapshot().Replace([]*Client{{ClientID: "C1", Status: LeadGenerated}})

	_, err := e.SetStatus(context.Background(), "C1", "E1", Contacted, nil)
	if !errors.Is(err, workflow.ErrTransportFailure) {
		t.Fatalf("err = %v, want TransportFailure", err)
	}
	if err.Error() != "Client not found" {
		t.Errorf("message = %q, want remote message", err.Error())
	}
	got, _ := e.Snapshot().Get("C1")
	if got.Status != LeadGenerated {
		t.Errorf("snapshot changed on failure: %q", got.Status)
	}
}

func TestRecordInteraction(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, geo.Static(geo.Coordinate{Latitude: 28.6, Longitude: 77.2}))

	in, err := e.RecordInteraction(context.Background(), "C1", "E1", Meeting, "Discussed pricing")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if in.InteractionID != "I1" {
		t.Errorf("interactionId = %q", in.InteractionID)
	}
	if in.Latitude != 28.6 || in.Longitude != 77.2 {
		t.Errorf("coordinates = %v,%v", in.Latitude, in.Longitude)
	}
	if !in.Timestamp.Equal(fixedNow) {
		t.Errorf("timestamp = %v", in.Timestamp)
	}
	if len(gw.interactions) != 1 {
		t.Errorf("interactions sent = %d, want 1", len(gw.interactions))
	}
}

func TestRecordInteractionWithoutFix(t *testing.T) {
	gw := &fakeGateway{}
	denied := geo.LocatorFunc(func(ctx context.Context) (geo.Coordinate, error) {
		return geo.Coordinate{}, geo.ErrPermissionDenied
	})
	e := newTestEngine(gw, denied)

	_, err := e.RecordInteraction(context.Background(), "C1", "E1", Visit, "")
	if !errors.Is(err, workflow.ErrLocationRequired) {
		t.Fatalf("err = %v, want LocationRequired", err)
	}
	if len(gw.interactions) != 0 {
		t.Error("expected no remote call without a fix")
	}
}

func TestRecordInteractionInvalidType(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(gw, geo.Static(geo.Coordinate{Latitude: 1, Longitude: 1}))

	_, err := e.RecordInteraction(context.Background(), "C1", "E1", InteractionType("Email"), "")
	if !errors.Is(err, workflow.ErrInvalidInteractionType) {
		t.Fatalf("err = %v, want InvalidInteractionType", err)
	}
}

func TestAttachImage(t *testing.T) {
	gw := &fakeGateway{imageURL: "https://img.example/C1.jpg"}
	e := newTestEngine(gw, nil)
	e.Snapshot().Replace([]*Client{{ClientID: "C1"}})

	url, err := e.AttachImage(context.Background(), "C1", "E1", []byte{0xff, 0xd8, 0xff}, "image/jpeg")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if url != "https://img.example/C1.jpg" {
		t.Errorf("url = %q", url)
	}
	if len(gw.uploads) != 1 || gw.uploads[0] != "data:image/jpeg;base64,/9j/" {
		t.Errorf("uploads = %v", gw.uploads)
	}
	got, _ := e.Snapshot().Get("C1")
	if got.ImageURL != url {
		t.Errorf("snapshot imageUrl = %q", got.ImageURL)
	}
}

func TestAttachImageRefreshesWhenNoURL(t *testing.T) {
	gw := &fakeGateway{clients: []*Client{{ClientID: "C1", ImageURL: "/images/C1"}}}
	e := newTestEngine(gw, nil)

	url, err := e.AttachImage(context.Background(), "C1", "E1", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if url != "/images/C1" {
		t.Errorf("url = %q, want refreshed /images/C1", url)
	}
}

func TestAttachImageSucceedsWhenRereadFails(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("dial tcp: refused")}
	e := newTestEngine(gw, nil)

	url, err := e.AttachImage(context.Background(), "C1", "E1", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("attach: %v, want success once the upload landed", err)
	}
	if url != "" {
		t.Errorf("url = %q, want empty", url)
	}
	if len(gw.uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(gw.uploads))
	}
}

func TestAttachImageEmpty(t *testing.T) {
	e := newTestEngine(&fakeGateway{}, nil)
	_, err := e.AttachImage(context.Background(), "C1", "E1", nil, "")
	if !errors.Is(err, workflow.ErrMissingRequiredField) {
		t.Errorf("err = %v, want MissingRequiredField", err)
	}
}

func TestRefreshWrapsPlainErrors(t *testing.T) {
	e := newTestEngine(&fakeGateway{err: errors.New("dial tcp: refused")}, nil)
	_, err := e.Refresh(context.Background(), "E1")
	if !errors.Is(err, workflow.ErrTransportFailure) {
		t.Fatalf("err = %v, want TransportFailure", err)
	}
	if err.Error() != "Failed to load clients" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSnapshotSearch(t *testing.T) {
	var s Snapshot
	s.Replace([]*Client{
		{ClientID: "1", BusinessName: "Acme Foods", Industry: "FMCG", Location: "Delhi"},
		{ClientID: "2", BusinessName: "Zen Clinic", Industry: "Healthcare", Location: "Pune"},
	})

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"acme", 1},
		{"HEALTH", 1},
		{"pune", 1},
		{"mumbai", 0},
	}
	for _, tt := range tests {
		if got := len(s.Search(tt.query)); got != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, got, tt.want)
		}
	}
}
