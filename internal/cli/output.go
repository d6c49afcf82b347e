package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case GrantResult:
		o.printGrantResult(v)
	case Link:
		o.printLink(v)
	case VipStatus:
		o.printVipStatus(v)
	case Usage:
		o.printUsage(v)
	case Limits:
		o.printLimits(v)
	case Duration:
		o.printDuration(v)
	case []Player:
		o.printPlayers(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// GrantResult response type (matches API)
type GrantResult struct {
	RequestID     string    `json:"request_id"`
	TransportUsed string    `json:"transport_used"`
	ExpiresAtUTC  time.Time `json:"expires_at_utc"`
	RawMessage    string    `json:"raw_message,omitempty"`
	StatusLines   []string  `json:"status_lines,omitempty"`
}

// Link response type
type Link struct {
	OwnerID  string    `json:"owner_id"`
	PlayerID string    `json:"player_id"`
	LinkedAt time.Time `json:"linked_at"`
}

// VipStatus response type
type VipStatus struct {
	PlayerID     string     `json:"player_id"`
	Name         string     `json:"name,omitempty"`
	ExpiresAtUTC *time.Time `json:"expires_at_utc"`
}

// Usage response type
type Usage struct {
	OperatorID string    `json:"operator_id"`
	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	ResetAt    time.Time `json:"reset_at"`
}

// Limits response type
type Limits struct {
	Limit        int    `json:"limit"`
	ResetWeekday string `json:"reset_weekday"`
	ResetTime    string `json:"reset_time"`
	Timezone     string `json:"timezone"`
}

// Duration response type
type Duration struct {
	Hours float64 `json:"hours"`
}

// Player response type
type Player struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// HealthResult response type
type HealthResult struct {
	Status               string  `json:"status"`
	StorageBackend       string  `json:"storage_backend"`
	RegisteredLinks      int     `json:"registered_links"`
	DefaultDurationHours float64 `json:"default_duration_hours"`
}

func (o *Output) printGrantResult(g GrantResult) {
	fmt.Printf("VIP granted via %s\n", g.TransportUsed)
	fmt.Printf("Expires: %s\n", g.ExpiresAtUTC.Format(time.RFC3339))
	fmt.Printf("Request ID: %s\n", g.RequestID)
	if g.RawMessage != "" {
		fmt.Printf("Server said: %s\n", g.RawMessage)
	}
	for _, line := range g.StatusLines {
		fmt.Printf("  %s\n", line)
	}
}

func (o *Output) printLink(l Link) {
	fmt.Printf("Owner: %s\n", l.OwnerID)
	fmt.Printf("Player: %s\n", l.PlayerID)
	fmt.Printf("Linked: %s\n", l.LinkedAt.Format(time.RFC3339))
}

func (o *Output) printVipStatus(v VipStatus) {
	if v.Name != "" {
		fmt.Printf("Player: %s (%s)\n", v.Name, v.PlayerID)
	} else {
		fmt.Printf("Player: %s\n", v.PlayerID)
	}
	if v.ExpiresAtUTC != nil {
		fmt.Printf("VIP expires: %s\n", v.ExpiresAtUTC.Format(time.RFC3339))
	} else {
		fmt.Println("VIP expires: never")
	}
}

func (o *Output) printUsage(u Usage) {
	fmt.Printf("Operator: %s\n", u.OperatorID)
	fmt.Printf("Used: %d of %d this week\n", u.Count, u.Limit)
	fmt.Printf("Resets: %s\n", u.ResetAt.Format(time.RFC3339))
}

func (o *Output) printLimits(l Limits) {
	fmt.Printf("Weekly limit: %d grants per operator\n", l.Limit)
	fmt.Printf("Resets: %s %s (%s)\n", l.ResetWeekday, l.ResetTime, l.Timezone)
}

func (o *Output) printDuration(d Duration) {
	fmt.Printf("Default VIP duration: %g hours\n", d.Hours)
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		fmt.Println("No players found")
		return
	}
	fmt.Printf("Players (%d):\n", len(players))
	for _, p := range players {
		fmt.Printf("  - %s (%s)\n", p.Name, p.PlayerID)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Storage: %s\n", h.StorageBackend)
	fmt.Printf("Registered links: %d\n", h.RegisteredLinks)
	fmt.Printf("Default VIP duration: %g hours\n", h.DefaultDurationHours)
}
