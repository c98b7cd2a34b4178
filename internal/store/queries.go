package store

import "strings"

// contactColumns lists the columns of the contacts table in the order of model.Contact.
const contactColumns = "id, first_name, last_name, email, phone_num, birthday, user_id"

// ownerScoped returns a select on the contacts table that is restricted to the rows of one user.
// The owner's id is always the first placeholder. Additional conditions are joined with AND.
func ownerScoped(conditions ...string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(contactColumns)
	b.WriteString(" FROM contacts WHERE user_id = ?")
	for _, c := range conditions {
		b.WriteString(" AND ")
		b.WriteString(c)
	}
	return b.String()
}

// likeEscape is the escape character of the search patterns. It is declared in every LIKE, so the
// patterns do not depend on the server's NO_BACKSLASH_ESCAPES mode.
const likeEscape = "!"

// searchCondition matches a lower-cased LIKE pattern against first name, last name, or email.
const searchCondition = "(LOWER(first_name) LIKE ? ESCAPE '" + likeEscape + "'" +
	" OR LOWER(last_name) LIKE ? ESCAPE '" + likeEscape + "'" +
	" OR LOWER(email) LIKE ? ESCAPE '" + likeEscape + "')"

// likePattern turns free text into a case-insensitive substring pattern for LIKE. The wildcard
// characters of the input are escaped, so they only match themselves.
func likePattern(query string) string {
	escaper := strings.NewReplacer(likeEscape, likeEscape+likeEscape, `%`, likeEscape+`%`, `_`, likeEscape+`_`)
	return "%" + escaper.Replace(strings.ToLower(query)) + "%"
}
