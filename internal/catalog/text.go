package catalog

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/npezzotti/go-roomboard/internal/types"
)

// TimeAgo renders the age of t relative to now the way the room cards do.
// A nil time renders as an empty string.
func TimeAgo(now time.Time, t *time.Time) string {
	if t == nil {
		return ""
	}

	seconds := now.Sub(*t).Seconds()
	units := []struct {
		size float64
		name string
	}{
		{31536000, "years"},
		{2592000, "months"},
		{86400, "days"},
		{3600, "hours"},
		{60, "minutes"},
	}
	for _, u := range units {
		if interval := seconds / u.size; interval > 1 {
			return fmt.Sprintf("%d %s ago", int(interval), u.name)
		}
	}
	return "just now"
}

var joinTmpl = template.Must(template.New("join").Parse(`JOINING TOURNAMENT ROOM

Room Details:
- Tier: {{.Name}} (Rs.{{.Tier}})
- Room ID: {{.RoomId}}
- Password: {{.Password}}
- Per Kill: Rs.{{.KillReward}}

Instructions:
1. Open Free Fire/BGMI
2. Go to Custom Room
3. Enter Room ID: {{.RoomId}}
4. Enter Password: {{.Password}}
5. Join and dominate!

Good luck, champion!
`))

// JoinInstructions builds the plain-text message shown when a player joins a
// room. Unknown tiers are reported as "Unknown" with no kill reward.
func JoinInstructions(r types.Room) (string, error) {
	info, ok := Lookup(r.Tier)
	if !ok {
		info = TierInfo{Tier: r.Tier, DisplayName: "Unknown"}
	}

	var buf bytes.Buffer
	err := joinTmpl.Execute(&buf, struct {
		Name       string
		Tier       types.Tier
		RoomId     string
		Password   string
		KillReward int
	}{
		Name:       info.DisplayName,
		Tier:       r.Tier,
		RoomId:     r.RoomId,
		Password:   r.Password,
		KillReward: info.KillReward,
	})
	if err != nil {
		return "", fmt.Errorf("render join instructions: %w", err)
	}

	return buf.String(), nil
}
