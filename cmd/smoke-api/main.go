package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Smoke-tests a running clinicore-api: login, list patients inside the
// caller's cabinet, then refresh the token.
func main() {
	base := os.Getenv("CLINICORE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("CLINICORE_SMOKE_EMAIL")
	if email == "" {
		email = "owner@clinicore.local"
	}
	password := os.Getenv("CLINICORE_SMOKE_PASSWORD")
	if password == "" {
		password = "clinicore"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	token := login(client, base, email, password)

	items := listPatients(client, base, token)
	fmt.Printf("patients visible: %d\n", items)

	refreshed := refresh(client, base, token)
	if refreshed == "" {
		log.Fatal("refresh returned empty token")
	}

	fmt.Println("✅ clinicore-api smoke test passed")
}

func login(client *http.Client, base, email, password string) string {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("login: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("login: decode: %v", err)
	}
	if out.Token == "" {
		log.Fatal("login: empty token")
	}
	return out.Token
}

func listPatients(client *http.Client, base, token string) int {
	req, _ := http.NewRequest(http.MethodGet, base+"/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("list patients: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("list patients: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("list patients: decode: %v", err)
	}
	return len(out.Items)
}

func refresh(client *http.Client, base, token string) string {
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("refresh: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("refresh: decode: %v", err)
	}
	return out.Token
}
