// Seed script that loads demo agents, memories and events into a running
// veritas server. Run with: go run ./scripts/seed.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type seeder struct {
	base   string
	apiKey string
	client *http.Client
}

func main() {
	// Load environment
	envFile := os.Getenv("VERITAS_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	base := os.Getenv("VERITAS_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	s := &seeder{
		base:   strings.TrimRight(base, "/"),
		apiKey: os.Getenv("VERITAS_API_KEY"),
		client: &http.Client{Timeout: 30 * time.Second},
	}

	if err := s.call(http.MethodGet, "/health", nil, nil); err != nil {
		log.Fatalf("Server is not reachable at %s: %v", s.base, err)
	}
	fmt.Println("Connected to", s.base)

	agents := []struct{ id, role, specialty string }{
		{"alice", "senior", "infrastructure"},
		{"bob", "engineer", "backend"},
		{"carol", "engineer", "sre"},
		{"deploy-bot", "agent", "automation"},
	}
	for _, a := range agents {
		body := map[string]string{"role": a.role, "specialization": a.specialty}
		if err := s.call(http.MethodPut, "/v1/agents/"+a.id, body, nil); err != nil {
			log.Fatalf("Failed to register agent %s: %v", a.id, err)
		}
	}
	fmt.Printf("Registered %d agents\n", len(agents))

	now := time.Now().UTC()
	memories := []struct {
		creator, content, source string
		age                      time.Duration
	}{
		{"alice", "Redis runs on port 6379", "tested", 120 * 24 * time.Hour},
		{"bob", "Redis runs on port 6380", "observed", 2 * 24 * time.Hour},
		{"carol", "The payments-api service is running", "observed", 6 * time.Hour},
		{"deploy-bot", "postgres version 15.4", "documented", 30 * 24 * time.Hour},
		{"carol", "Redis runs on port 6379 behind the cache proxy", "observed", 10 * 24 * time.Hour},
	}

	ids := make([]uuid.UUID, len(memories))
	var contradictions int
	for i, m := range memories {
		ids[i] = uuid.New()
		body := map[string]any{
			"content":      m.content,
			"category":     "infrastructure",
			"creator_id":   m.creator,
			"creator_role": roleOf(m.creator),
			"source_type":  m.source,
			"project":      "atlas",
			"systems":      []string{"redis", "postgres", "payments-api"},
			"created_at":   now.Add(-m.age),
		}
		var res struct {
			Contradictions []json.RawMessage `json:"contradictions"`
		}
		if err := s.call(http.MethodPost, "/v1/memories/"+ids[i].String()+"/ingest", body, &res); err != nil {
			log.Fatalf("Failed to ingest memory %q: %v", m.content, err)
		}
		contradictions += len(res.Contradictions)
	}
	fmt.Printf("Ingested %d memories (%d contradictions detected)\n", len(memories), contradictions)

	verifications := []struct {
		memory   int
		verifier string
		kind     string
	}{
		{0, "carol", "still_valid"},
		{2, "alice", "confirmed"},
		{3, "bob", "outdated"},
	}
	for _, v := range verifications {
		body := map[string]any{"verifier_id": v.verifier, "type": v.kind, "created_at": now}
		if err := s.call(http.MethodPost, "/v1/memories/"+ids[v.memory].String()+"/verifications", body, nil); err != nil {
			log.Fatalf("Failed to verify memory: %v", err)
		}
	}

	for _, voter := range []string{"bob", "carol", "deploy-bot"} {
		body := map[string]any{"agent_id": voter, "vote": "agree", "confidence": 0.8}
		if err := s.call(http.MethodPut, "/v1/memories/"+ids[2].String()+"/votes", body, nil); err != nil {
			log.Fatalf("Failed to vote: %v", err)
		}
	}

	for i, outcome := range []string{"success", "success", "failure"} {
		body := map[string]any{
			"agent_id":   "deploy-bot",
			"action":     "configure-cache-client",
			"outcome":    outcome,
			"created_at": now.Add(time.Duration(i) * time.Minute),
		}
		if err := s.call(http.MethodPost, "/v1/memories/"+ids[0].String()+"/outcomes", body, nil); err != nil {
			log.Fatalf("Failed to report outcome: %v", err)
		}
	}
	fmt.Println("Recorded verifications, votes and usage outcomes")

	if err := s.call(http.MethodPost, "/v1/consensus/run", nil, nil); err != nil {
		log.Fatalf("Failed to run consensus: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Seed Complete ===")
	for i, m := range memories {
		fmt.Printf("  %s  %s\n", ids[i], m.content)
	}
	fmt.Println()
	fmt.Println("Try:")
	fmt.Printf("  curl -H 'Authorization: Bearer $VERITAS_API_KEY' %s/v1/memories/%s/confidence\n", s.base, ids[0])
	fmt.Println("  go run ./cmd/veritasctl contradictions list")
}

func roleOf(agent string) string {
	switch agent {
	case "alice":
		return "senior"
	case "deploy-bot":
		return "agent"
	default:
		return "engineer"
	}
}

func (s *seeder) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("X-Agent-ID", "seed")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
