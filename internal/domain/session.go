package domain

import "time"

// Session holds the credentials issued by the remote service and owns the
// user they belong to.
type Session struct {
	CSID    string // company-scoped session id
	ESID    string // employee-scoped session id
	Cookies string
	User    *User

	Timestamp time.Time
}

func NewSession(csid, esid, cookies string, user *User) *Session {
	return &Session{
		CSID:      csid,
		ESID:      esid,
		Cookies:   cookies,
		User:      user,
		Timestamp: time.Now(),
	}
}

// IsValid reports whether all identifiers are present. It says nothing about
// whether the server still honours them.
func (s *Session) IsValid() bool {
	return s != nil && s.CSID != "" && s.ESID != "" && s.Cookies != ""
}

// UpdateUser replaces the owned user and bumps the timestamp.
func (s *Session) UpdateUser(u *User) {
	s.User = u
	s.Timestamp = time.Now()
}
