package sesame

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/iaimans/sesame-cli/internal/domain"
)

type platformData struct {
	PlatformName    string `json:"platformName"`
	PlatformSystem  string `json:"platformSystem"`
	PlatformVersion string `json:"platformVersion"`
}

type loginRequest struct {
	PlatformData platformData `json:"platformData"`
	Email        string       `json:"email"`
	Password     string       `json:"password"`
}

type loginResponse struct {
	Data string `json:"data"`
}

type checkRequest struct {
	Origin          string   `json:"origin"`
	Coordinates     struct{} `json:"coordinates"`
	WorkCheckTypeID *string  `json:"workCheckTypeId"`
}

type meResponse struct {
	Data []meUser `json:"data"`
}

type lastCheck struct {
	CheckInDatetime   string `json:"checkInDatetime"`
	WorkCheckTypeName string `json:"workCheckTypeName"`
}

type meUser struct {
	ID                 string     `json:"id"`
	FirstName          string     `json:"firstName"`
	CompanyID          string     `json:"companyId"`
	WorkStatus         string     `json:"workStatus"`
	AccumulatedSeconds *float64   `json:"accumulatedSeconds"`
	DailySchedule      *float64   `json:"dailySchedule"`
	LastCheck          *lastCheck `json:"lastCheck"`
}

type projectItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// checkInLayouts are tried in order when parsing lastCheck.checkInDatetime.
var checkInLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (m *meUser) toUser() *domain.User {
	project := ""
	if m.LastCheck != nil {
		project = m.LastCheck.WorkCheckTypeName
	}
	u := domain.NewUser(m.ID, m.FirstName, m.CompanyID, domain.WorkStatus(m.WorkStatus), project)
	u.UpdateWorkTime(seconds(m.AccumulatedSeconds), seconds(m.DailySchedule))
	if u.IsWorking() && m.LastCheck != nil {
		u.LastCheckIn = parseCheckIn(m.LastCheck.CheckInDatetime, time.Local)
	}
	return u
}

// seconds treats a missing value as zero and drops fractions.
func seconds(v *float64) int64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return int64(math.Floor(*v))
}

// parseCheckIn reads a value without an offset as wall-clock time in loc.
func parseCheckIn(s string, loc *time.Location) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range checkInLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}

// decodeProjects accepts both {"data": [...]} and a bare array.
func decodeProjects(data []byte) ([]projectItem, error) {
	var wrapped struct {
		Data []projectItem `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var bare []projectItem
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, errors.New("unexpected projects response")
	}
	return bare, nil
}
