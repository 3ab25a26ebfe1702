package ticket

import "time"

// State is the usage snapshot an expiration policy is evaluated against.
type State struct {
	CreationTime time.Time `json:"creation_time"`
	LastUsedTime time.Time `json:"last_used_time"`
	CountOfUses  int       `json:"count_of_uses"`
}

// Policy is a data-driven expiration rule. A zero value for any bound means
// that bound is not enforced; a Policy with NeverExpires set ignores all
// bounds. Being plain data, policies serialize with their tickets and need no
// type registry when stored remotely.
type Policy struct {
	NeverExpires bool          `json:"never_expires,omitempty"`
	MaxIdle      time.Duration `json:"max_idle,omitempty"`
	MaxLifetime  time.Duration `json:"max_lifetime,omitempty"`
	MaxUses      int           `json:"max_uses,omitempty"`
}

// NeverExpiresPolicy keeps a ticket alive until explicitly destroyed.
func NeverExpiresPolicy() Policy { return Policy{NeverExpires: true} }

// SlidingWindowPolicy combines an idle timeout with a hard maximum lifetime,
// the usual granting-ticket configuration.
func SlidingWindowPolicy(maxIdle, maxLifetime time.Duration) Policy {
	return Policy{MaxIdle: maxIdle, MaxLifetime: maxLifetime}
}

// HardTimeoutPolicy expires a ticket a fixed duration after creation.
func HardTimeoutPolicy(maxLifetime time.Duration) Policy {
	return Policy{MaxLifetime: maxLifetime}
}

// MultiUseOrTimeoutPolicy expires a ticket after a bounded number of uses or
// a time-to-live, whichever comes first; the service-ticket configuration.
func MultiUseOrTimeoutPolicy(maxUses int, timeToLive time.Duration) Policy {
	return Policy{MaxUses: maxUses, MaxLifetime: timeToLive}
}

// IsExpired evaluates the policy against a usage snapshot at the given
// instant. It is a pure function; the explicit mark-expired transition is
// carried on the ticket, not here.
func (p Policy) IsExpired(s State, now time.Time) bool {
	if p.NeverExpires {
		return false
	}
	if p.MaxUses > 0 && s.CountOfUses >= p.MaxUses {
		return true
	}
	if p.MaxLifetime > 0 && now.Sub(s.CreationTime) > p.MaxLifetime {
		return true
	}
	if p.MaxIdle > 0 {
		idleSince := s.LastUsedTime
		if idleSince.IsZero() {
			idleSince = s.CreationTime
		}
		if now.Sub(idleSince) > p.MaxIdle {
			return true
		}
	}
	return false
}

// TimeToLive reports an upper bound on how long a fresh ticket governed by
// this policy can stay live, used by remote registries to set storage TTLs.
// Zero means unbounded.
func (p Policy) TimeToLive() time.Duration {
	if p.NeverExpires {
		return 0
	}
	if p.MaxLifetime > 0 {
		return p.MaxLifetime
	}
	return p.MaxIdle
}
