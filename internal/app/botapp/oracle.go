package botapp

import (
	"github.com/ivankudzin/guildmod/internal/gateway"
)

// staticOracle decides immunity and ban state from configuration:
// bots, the community owner and administrators are never dispatched,
// and holders of the configured ban role count as banned for the
// sweeper.
type staticOracle struct {
	ownerID     int64
	adminRoleID int64
	banRoleID   int64
}

func (o staticOracle) IsImmune(m gateway.Member) bool {
	if m.Bot || m.Owner {
		return true
	}
	if o.ownerID != 0 && m.ID == o.ownerID {
		return true
	}
	for _, role := range m.Roles {
		if role.Administrator {
			return true
		}
		if o.adminRoleID != 0 && role.ID == o.adminRoleID {
			return true
		}
	}
	return false
}

func (o staticOracle) IsBanned(m gateway.Member) bool {
	if o.banRoleID == 0 {
		return false
	}
	for _, role := range m.Roles {
		if role.ID == o.banRoleID {
			return true
		}
	}
	return false
}
