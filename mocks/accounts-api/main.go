package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8083"
	defaultAPIKey    = "accounts-api-secret-key"
	defaultLatencyMs = "50"
)

type ClientResponse struct {
	ClientID      string `json:"client_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	MaritalStatus string `json:"marital_status"`
}

type InvestmentRequest struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

type InvestmentResponse struct {
	InvestmentID string  `json:"investment_id"`
	Name         string  `json:"name"`
	Balance      float64 `json:"balance"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu          sync.Mutex
	investments = map[string][]InvestmentResponse{}
)

// Magic client IDs let e2e scenarios steer the mock's behavior.
var (
	notFoundClients = map[string]bool{
		"UNKNOWN999": true,
	}
	outageClients = map[string]bool{
		"OUTAGE500": true,
	}
	seededClients = map[string]ClientResponse{
		"123": {
			ClientID: "123", FirstName: "Don", LastName: "Doe",
			Address: "123 Main Street", Phone: "999-555-1212",
			Email: "jd@someplace.com", MaritalStatus: "married",
		},
		"234": {
			ClientID: "234", FirstName: "Jane", LastName: "Smith",
			Address: "456 Oak Avenue", Phone: "999-555-3434",
			Email: "jsmith@someplace.com", MaritalStatus: "single",
		},
	}
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/clients/", handleClients)

	log.Printf("Mock accounts API starting on port %s", port)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "accounts-api",
	})
}

// handleClients serves GET /clients/{id} and POST /clients/{id}/investments.
func handleClients(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("Incoming request: %s %s", r.Method, r.URL.Path)

	if r.Header.Get("X-API-Key") != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/clients/"), "/"), "/")
	clientID := parts[0]
	if clientID == "" {
		sendError(w, "client id is required", http.StatusBadRequest)
		return
	}
	if outageClients[clientID] {
		sendError(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	if notFoundClients[clientID] {
		sendError(w, fmt.Sprintf("client %s not found", clientID), http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, lookupClient(clientID))
	case len(parts) == 2 && parts[1] == "investments" && r.Method == http.MethodPost:
		openInvestment(w, r, clientID)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func openInvestment(w http.ResponseWriter, r *http.Request, clientID string) {
	var req InvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Balance < 0 {
		sendError(w, "balance cannot be negative", http.StatusBadRequest)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	receipt := InvestmentResponse{
		InvestmentID: fmt.Sprintf("%s-%d", clientID, len(investments[clientID])+1),
		Name:         req.Name,
		Balance:      req.Balance,
	}
	investments[clientID] = append(investments[clientID], receipt)

	writeJSON(w, http.StatusCreated, receipt)
	log.Printf("Investment opened: %s -> %s", clientID, receipt.InvestmentID)
}

// lookupClient returns a seeded client or deterministic data derived from the id.
func lookupClient(clientID string) ClientResponse {
	if c, ok := seededClients[clientID]; ok {
		return c
	}
	hash := sha256.Sum256([]byte(clientID))
	n := int(hash[0])

	firstNames := []string{"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace", "Henry"}
	lastNames := []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis"}
	streets := []string{"Main St", "Oak Ave", "Maple Dr", "Pine Rd", "Elm St", "Cedar Ln"}
	statuses := []string{"single", "married", "divorced", "widowed"}

	first := firstNames[n%len(firstNames)]
	last := lastNames[(n*3)%len(lastNames)]
	return ClientResponse{
		ClientID:      clientID,
		FirstName:     first,
		LastName:      last,
		Address:       fmt.Sprintf("%d %s", 100+n%900, streets[n%len(streets)]),
		Phone:         fmt.Sprintf("999-555-%04d", (n*37)%10000),
		Email:         strings.ToLower(first + "." + last + "@example.com"),
		MaritalStatus: statuses[n%len(statuses)],
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
	log.Printf("Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
