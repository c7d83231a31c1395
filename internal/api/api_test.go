package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/elderaid/elderaid/internal/db"
	"github.com/elderaid/elderaid/internal/mirror"
	"github.com/elderaid/elderaid/internal/model"
	"github.com/elderaid/elderaid/internal/service"
)

const testJWTSecret = "test-secret"

type testServer struct {
	*httptest.Server
	mirror *mirror.MemoryMirror
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)
	log := zap.NewNop()
	m := mirror.NewMemoryMirror()
	relay := mirror.NewRelay(database, m, log)

	svc := Services{
		Institutions: &service.Institutions{DB: database, Relay: relay, Log: log, JWTSecret: testJWTSecret},
		Campaigns:    &service.Campaigns{DB: database, Relay: relay, Log: log},
		Donations:    &service.Donations{DB: database, Relay: relay, Log: log},
		Benefactors:  &service.Benefactors{DB: database, Log: log},
		Images:       &service.Images{DB: database, Log: log, PublicURL: "http://localhost:8080"},
	}
	server := httptest.NewServer(NewRouter(database, testJWTSecret, svc, log))
	t.Cleanup(server.Close)
	return &testServer{Server: server, mirror: m}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a request, checks the status code and decodes the body into out.
func do(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func register(t *testing.T, s *testServer, email string) (string, int64) {
	t.Helper()
	var session struct {
		Token       string            `json:"token"`
		Institution model.Institution `json:"institution"`
	}
	do(t, "POST", s.URL+"/api/auth/register", "", map[string]any{
		"name": "Hogar San José", "NIT": "900123456", "email": email,
		"password": "secret123", "lat": 4.711, "lng": -74.072,
	}, http.StatusCreated, &session)
	if session.Token == "" {
		t.Fatal("empty token from register")
	}
	return session.Token, session.Institution.ID
}

// pledge creates a campaign, a benefactor and a donation, returning the donation.
func pledge(t *testing.T, s *testServer, token string) model.Donation {
	t.Helper()
	var c model.Campaign
	do(t, "POST", s.URL+"/api/campaigns", token, map[string]any{
		"name": "Winter drive", "requirement": "blankets", "beneficiary_type": "elderly",
		"start_date": "2024-01-01", "end_date": "2099-12-31",
		"image_urls": []string{"https://img.example.com/a.png"},
	}, http.StatusCreated, &c)

	var b model.Benefactor
	do(t, "POST", s.URL+"/api/benefactors", "", map[string]any{
		"name": "María", "email": "maria@example.com", "lat": 4.6, "lng": -74.1,
	}, http.StatusCreated, &b)

	var d model.Donation
	do(t, "POST", s.URL+"/api/donations", "", map[string]any{
		"description": "wool blankets", "quantity": 3,
		"campaign_id": c.ID, "benefactor_id": fmt.Sprint(b.ID),
	}, http.StatusCreated, &d)
	return d
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)
	register(t, s, "hogar@example.com")

	var session map[string]any
	do(t, "POST", s.URL+"/api/auth/login", "", map[string]string{
		"email": "hogar@example.com", "password": "secret123",
	}, http.StatusOK, &session)
	if session["token"] == "" {
		t.Error("expected token from login")
	}

	do(t, "POST", s.URL+"/api/auth/login", "", map[string]string{
		"email": "hogar@example.com", "password": "wrong",
	}, http.StatusUnauthorized, nil)

	do(t, "POST", s.URL+"/api/auth/register", "", map[string]any{
		"name": "Again", "NIT": "1", "email": "hogar@example.com", "password": "secret123",
	}, http.StatusConflict, nil)
}

func TestMeAndLogout(t *testing.T) {
	s := setupTestServer(t)
	token, id := register(t, s, "hogar@example.com")

	var inst map[string]any
	do(t, "GET", s.URL+"/api/auth/me", token, nil, http.StatusOK, &inst)
	if inst["email"] != "hogar@example.com" {
		t.Errorf("expected own profile, got %v", inst)
	}
	if _, ok := inst["password_hash"]; ok {
		t.Error("password hash leaked in profile")
	}
	if int64(inst["id"].(float64)) != id {
		t.Errorf("expected id %d, got %v", id, inst["id"])
	}

	do(t, "POST", s.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", s.URL+"/api/auth/me", token, nil, http.StatusUnauthorized, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	s := setupTestServer(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/auth/me"},
		{"POST", "/api/campaigns"},
		{"GET", "/api/donations"},
		{"PUT", "/api/donations/status"},
		{"POST", "/api/uploads"},
	} {
		do(t, route.method, s.URL+route.path, "", nil, http.StatusUnauthorized, nil)
		do(t, route.method, s.URL+route.path, "not-a-token", nil, http.StatusUnauthorized, nil)
	}
}

func TestDonationStatusFlow(t *testing.T) {
	s := setupTestServer(t)
	token, _ := register(t, s, "hogar@example.com")
	d := pledge(t, s, token)

	if d.Status != model.StatusToCollect {
		t.Fatalf("expected to_collect, got %s", d.Status)
	}

	var updated model.Donation
	do(t, "PUT", s.URL+"/api/donations/status", token, map[string]any{
		"donationId": d.ID, "status": "on_the_way",
	}, http.StatusOK, &updated)
	if updated.Status != model.StatusOnTheWay {
		t.Errorf("expected on_the_way, got %s", updated.Status)
	}
	if got := s.mirror.Get(mirror.CollectionDonations, d.MirrorID)["status"]; got != "on_the_way" {
		t.Errorf("mirror status: expected on_the_way, got %v", got)
	}

	// Rejected statuses leave the donation alone.
	do(t, "PUT", s.URL+"/api/donations/status", token, map[string]any{
		"donationId": d.ID, "status": "lost",
	}, http.StatusBadRequest, nil)
	do(t, "PUT", s.URL+"/api/donations/status", token, map[string]any{
		"status": "received",
	}, http.StatusBadRequest, nil)
	do(t, "PUT", s.URL+"/api/donations/status", token, map[string]any{
		"donationId": 999, "status": "received",
	}, http.StatusNotFound, nil)

	var list []model.Donation
	do(t, "GET", s.URL+"/api/donations", token, nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].Status != model.StatusOnTheWay {
		t.Fatalf("expected one on_the_way donation, got %+v", list)
	}
	if list[0].Campaign == nil || list[0].Campaign.Name != "Winter drive" {
		t.Errorf("expected joined campaign summary, got %+v", list[0].Campaign)
	}
	if list[0].Benefactor == nil || list[0].Benefactor.Email != "maria@example.com" {
		t.Errorf("expected joined benefactor summary, got %+v", list[0].Benefactor)
	}

	// String ids are accepted too.
	do(t, "PUT", s.URL+"/api/donations/status", token, map[string]any{
		"donationId": fmt.Sprint(d.ID), "status": "received",
	}, http.StatusOK, nil)
	do(t, "GET", s.URL+"/api/donations?status=received&campaign=Winter", token, nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("expected filtered donation, got %d", len(list))
	}
	do(t, "GET", s.URL+"/api/donations?status=to_collect", token, nil, http.StatusOK, &list)
	if len(list) != 0 {
		t.Errorf("expected no to_collect donations, got %d", len(list))
	}
}

func TestDonationsOfOtherInstitution(t *testing.T) {
	s := setupTestServer(t)
	owner, ownerID := register(t, s, "hogar@example.com")
	other, _ := register(t, s, "otro@example.com")
	d := pledge(t, s, owner)

	do(t, "PUT", s.URL+"/api/donations/status", other, map[string]any{
		"donationId": d.ID, "status": "received",
	}, http.StatusForbidden, nil)
	do(t, "GET", fmt.Sprintf("%s/api/donations?institutionId=%d", s.URL, ownerID), other, nil, http.StatusForbidden, nil)
	do(t, "DELETE", fmt.Sprintf("%s/api/campaigns/%d", s.URL, d.CampaignID), other, nil, http.StatusForbidden, nil)
}

func TestCampaignsAPIFlow(t *testing.T) {
	s := setupTestServer(t)
	token, id := register(t, s, "hogar@example.com")

	var past model.Campaign
	do(t, "POST", s.URL+"/api/campaigns", token, map[string]any{
		"name": "Old drive", "requirement": "rice", "beneficiary_type": "elderly",
		"start_date": "2019-06-01", "end_date": "2020-01-01",
	}, http.StatusCreated, &past)
	d := pledge(t, s, token)

	var views []model.CampaignView
	do(t, "GET", s.URL+"/api/campaigns", "", nil, http.StatusOK, &views)
	if len(views) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(views))
	}
	for _, v := range views {
		want := model.CampaignActive
		if v.ID == past.ID {
			want = model.CampaignFinalized
		}
		if v.Status != want {
			t.Errorf("campaign %d: expected %s, got %s", v.ID, want, v.Status)
		}
	}

	var view model.CampaignView
	do(t, "GET", fmt.Sprintf("%s/api/campaigns/%d", s.URL, past.ID), "", nil, http.StatusOK, &view)
	if view.Status != model.CampaignFinalized {
		t.Errorf("detail view: expected finalized, got %s", view.Status)
	}

	do(t, "GET", fmt.Sprintf("%s/api/campaigns?institutionId=%d", s.URL, id), "", nil, http.StatusOK, &views)
	if len(views) != 2 {
		t.Errorf("expected 2 campaigns for institution, got %d", len(views))
	}
	do(t, "GET", s.URL+"/api/campaigns?institutionId=abc", "", nil, http.StatusBadRequest, nil)
	do(t, "GET", s.URL+"/api/campaigns/999", "", nil, http.StatusNotFound, nil)

	// Finalized campaigns take no donations.
	do(t, "POST", s.URL+"/api/donations", "", map[string]any{
		"description": "rice", "quantity": 1, "campaign_id": past.ID, "benefactor_id": d.BenefactorID,
	}, http.StatusConflict, nil)

	do(t, "PUT", fmt.Sprintf("%s/api/campaigns/%d/close", s.URL, d.CampaignID), token, nil, http.StatusOK, &view)
	if view.Status != model.CampaignFinalized {
		t.Errorf("closed campaign: expected finalized, got %s", view.Status)
	}

	do(t, "DELETE", fmt.Sprintf("%s/api/campaigns/%d", s.URL, d.CampaignID), token, nil, http.StatusConflict, nil)
	do(t, "DELETE", fmt.Sprintf("%s/api/campaigns/%d", s.URL, past.ID), token, nil, http.StatusOK, nil)
	do(t, "GET", fmt.Sprintf("%s/api/campaigns/%d", s.URL, past.ID), "", nil, http.StatusNotFound, nil)
}

func TestCampaignImageURLsKeepOrder(t *testing.T) {
	s := setupTestServer(t)
	token, _ := register(t, s, "hogar@example.com")

	urls := []string{
		"https://img.example.com/c.png",
		"https://img.example.com/a.png",
		"https://img.example.com/b.png",
	}
	for _, field := range []string{"image_urls", "images"} {
		var c model.Campaign
		do(t, "POST", s.URL+"/api/campaigns", token, map[string]any{
			"name": "Drive " + field, "requirement": "blankets", "beneficiary_type": "elderly",
			"start_date": "2024-01-01", "end_date": "2099-12-31",
			field: urls,
		}, http.StatusCreated, &c)

		var view model.CampaignView
		do(t, "GET", fmt.Sprintf("%s/api/campaigns/%d", s.URL, c.ID), "", nil, http.StatusOK, &view)
		if len(view.Images) != len(urls) {
			t.Fatalf("%s: expected %d images, got %d", field, len(urls), len(view.Images))
		}
		for i, img := range view.Images {
			if img.ImageURL != urls[i] {
				t.Errorf("%s: image %d = %q, want %q", field, i, img.ImageURL, urls[i])
			}
		}
	}
}

func TestCreateValidation(t *testing.T) {
	s := setupTestServer(t)
	token, _ := register(t, s, "hogar@example.com")

	do(t, "POST", s.URL+"/api/campaigns", token, map[string]any{
		"name": "x", "requirement": "y", "beneficiary_type": "z",
		"start_date": "2024-05-01", "end_date": "2024-04-01",
	}, http.StatusBadRequest, nil)
	do(t, "POST", s.URL+"/api/campaigns", token, map[string]any{
		"name": "x", "requirement": "y", "beneficiary_type": "z",
		"start_date": "yesterday", "end_date": "2024-04-01",
	}, http.StatusBadRequest, nil)
	do(t, "POST", s.URL+"/api/benefactors", "", map[string]any{"name": "x", "email": "bad"}, http.StatusBadRequest, nil)
	do(t, "POST", s.URL+"/api/donations", "", map[string]any{"description": "x", "quantity": 1, "campaign_id": 5, "benefactor_id": 5}, http.StatusNotFound, nil)
	do(t, "POST", s.URL+"/api/donations", "", map[string]any{"description": "x", "quantity": 1, "campaign_id": "five"}, http.StatusBadRequest, nil)
}

func TestUploadAndServeImage(t *testing.T) {
	s := setupTestServer(t)
	token, _ := register(t, s, "hogar@example.com")

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "photo.png")
	fw.Write(img.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", s.URL+"/api/uploads", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var uploaded map[string]string
	json.NewDecoder(resp.Body).Decode(&uploaded)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	const prefix = "http://localhost:8080"
	path := uploaded["url"][len(prefix):]
	resp, err = http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for stored image, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}

	do(t, "GET", s.URL+"/api/images/not-an-id", "", nil, http.StatusNotFound, nil)
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)
	var health map[string]any
	do(t, "GET", s.URL+"/api/health", "", nil, http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("expected ok, got %v", health)
	}
}
