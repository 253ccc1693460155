package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizdeck/quizdeck/internal/identity"
)

type bulkUserRow struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// BulkUpsertUsersHandler provisions users in bulk from a multipart CSV/JSON
// file or a raw JSON array. Existing rows (matched by email) are updated in
// place, keeping their password when the row carries none; new rows require
// a password.
func BulkUpsertUsersHandler(users identity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []bulkUserRow
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", 400)
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by first non-space byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				http.Error(w, "empty file", 400)
				return
			}
			if _, err := f.(io.Seeker).Seek(0, io.SeekStart); err != nil {
				http.Error(w, "unreadable file", 400)
				return
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					http.Error(w, "bad json", 400)
					return
				}
			} else {
				rs, err := parseUserCSV(f)
				if err != nil {
					http.Error(w, "bad csv: "+err.Error(), 400)
					return
				}
				rows = rs
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				http.Error(w, "expected JSON array or multipart file", 400)
				return
			}
		}
		if len(rows) == 0 {
			writeJSON(w, 200, map[string]any{"inserted": 0, "updated": 0})
			return
		}

		inserted, updated := 0, 0
		for _, row := range rows {
			email := strings.ToLower(strings.TrimSpace(row.Email))
			if email == "" || row.FullName == "" {
				http.Error(w, "full_name and email required on every row", 400)
				return
			}
			var hash string
			if row.Password != "" {
				b, err := bcrypt.GenerateFromPassword([]byte(row.Password), 12)
				if err != nil {
					writeErr(w, err)
					return
				}
				hash = string(b)
			}

			existing, err := users.UserByEmail(r.Context(), email)
			switch {
			case err == nil:
				existing.FullName = row.FullName
				if row.EmployeeID != "" {
					existing.EmployeeID = row.EmployeeID
				}
				if hash != "" {
					existing.PasswordHash = hash
				}
				if err := users.UpdateUser(r.Context(), existing); err != nil {
					writeErr(w, err)
					return
				}
				updated++
			case errors.Is(err, identity.ErrNotFound):
				if hash == "" {
					http.Error(w, "password required for new user: "+email, 400)
					return
				}
				if _, err := users.CreateUser(r.Context(), identity.User{
					EmployeeID:   row.EmployeeID,
					FullName:     row.FullName,
					Email:        email,
					PasswordHash: hash,
				}); err != nil {
					writeErr(w, err)
					return
				}
				inserted++
			default:
				writeErr(w, err)
				return
			}
		}
		writeJSON(w, 200, map[string]any{"inserted": inserted, "updated": updated})
	}
}

func parseUserCSV(r io.Reader) ([]bulkUserRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"employee_id", "full_name", "email"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []bulkUserRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := bulkUserRow{
			EmployeeID: rec[idx["employee_id"]],
			FullName:   rec[idx["full_name"]],
			Email:      rec[idx["email"]],
		}
		if i, ok := idx["password"]; ok {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
