// Command smoke runs black-box checks against a running scheduling API:
// health endpoints, admin login, and the double-booking rejection contract
// (creating the same venue slot twice must yield 201 then 409).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginEnvelope struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type bookingPayload struct {
	CourseID  string    `json:"course_id"`
	TeacherID string    `json:"teacher_id"`
	Date      time.Time `json:"date"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Venue     string    `json:"venue"`
	Duration  int       `json:"duration_minutes"`
}

func main() {
	var (
		base      string
		email     string
		password  string
		courseID  string
		teacherID string
		timeout   time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", "admin@school.test", "Admin login email")
	flag.StringVar(&password, "password", "admin", "Admin login password")
	flag.StringVar(&courseID, "course", "", "Course id used for the conflict probe")
	flag.StringVar(&teacherID, "teacher", "", "Teacher id used for the conflict probe")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	failures := 0

	for _, path := range []string{"/health", "/ready"} {
		status, err := get(client, base+path, "")
		if err != nil || status != http.StatusOK {
			log.Printf("FAIL %s: status=%d err=%v", path, status, err)
			failures++
			continue
		}
		log.Printf("ok   %s", path)
	}

	token, err := login(client, base, email, password)
	if err != nil {
		log.Printf("FAIL login: %v", err)
		os.Exit(failures + 1)
	}
	log.Printf("ok   login")

	if courseID != "" && teacherID != "" {
		if err := probeConflict(client, base, token, courseID, teacherID); err != nil {
			log.Printf("FAIL conflict probe: %v", err)
			failures++
		} else {
			log.Printf("ok   conflict probe")
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func get(client *http.Client, url, token string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func login(client *http.Client, base, email, password string) (string, error) {
	body, _ := json.Marshal(loginPayload{Email: email, Password: password})
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var envelope loginEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return envelope.Data.AccessToken, nil
}

// probeConflict books a far-future slot twice. First insert must succeed,
// the duplicate must be rejected with 409.
func probeConflict(client *http.Client, base, token, courseID, teacherID string) error {
	day := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour)
	payload := bookingPayload{
		CourseID:  courseID,
		TeacherID: teacherID,
		Date:      day,
		StartTime: day.Add(8 * time.Hour),
		EndTime:   day.Add(9 * time.Hour),
		Venue:     fmt.Sprintf("smoke-%d", time.Now().Unix()),
		Duration:  60,
	}

	first, firstBody, err := createBooking(client, base, token, payload)
	if err != nil {
		return err
	}
	if first != http.StatusCreated {
		return fmt.Errorf("first insert: expected 201, got %d", first)
	}

	second, _, err := createBooking(client, base, token, payload)
	if err != nil {
		return err
	}
	if second != http.StatusConflict {
		return fmt.Errorf("duplicate insert: expected 409, got %d", second)
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(firstBody, &created); err == nil && created.Data.ID != "" {
		req, _ := http.NewRequest(http.MethodDelete, base+"/api/v1/bookings/"+created.Data.ID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	return nil
}

func createBooking(client *http.Client, base, token string, payload bookingPayload) (int, []byte, error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/bookings", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}
