package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// Mention syntax follows the usual chat-platform wire form: <@id> for
// members, <@&id> for roles, <#id> for channels. Parsers also accept a
// bare numeric id so stored references survive platform changes.

func MemberMention(id int64) string  { return fmt.Sprintf("<@%d>", id) }
func RoleMention(id int64) string    { return fmt.Sprintf("<@&%d>", id) }
func ChannelMention(id int64) string { return fmt.Sprintf("<#%d>", id) }

func ParseMemberRef(s string) (int64, error) {
	return parseRef(s, "<@", ">")
}

func ParseRoleRef(s string) (int64, error) {
	return parseRef(s, "<@&", ">")
}

func ParseChannelRef(s string) (int64, error) {
	return parseRef(s, "<#", ">")
}

func parseRef(s, prefix, suffix string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, prefix) && strings.HasSuffix(trimmed, suffix) {
		trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, prefix), suffix)
		// member mentions may carry a nickname marker: <@!id>
		trimmed = strings.TrimPrefix(trimmed, "!")
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed reference %q", s)
	}
	return id, nil
}
