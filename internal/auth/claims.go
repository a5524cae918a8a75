package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

const countryPrefix = "/countries/"

type Claims struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Groups    []string `json:"groups"`
	Countries []string `json:"countries"` // ISO codes extracted from /countries/XX groups
	Token     string   `json:"-"`         // raw bearer token, forwarded to the CRM backend
	jwt.RegisteredClaims
}

// UserID returns the subject, falling back to the email
func (c *Claims) UserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Email
}

// Agent converts the claims into a workspace identity
func (c *Claims) Agent() workspace.Agent {
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return workspace.Agent{
		ID:        c.UserID(),
		Name:      name,
		Role:      types.Role(c.Role),
		Countries: c.Countries,
	}
}

// IsCountryAllowed reports whether the user may see data of a country.
// Admins see every country; everyone else only the countries in their groups.
func (c *Claims) IsCountryAllowed(country string) bool {
	if c.Role == string(types.RoleAdmin) {
		return true
	}
	for _, cc := range c.Countries {
		if strings.EqualFold(cc, country) {
			return true
		}
	}
	return false
}

// HasRole checks if user has specific role
func HasRole(claims *Claims, role string) bool {
	return claims.Role == role
}

// InGroup checks if user is in specific group
func InGroup(claims *Claims, group string) bool {
	for _, g := range claims.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func claimsFromMap(mapClaims jwt.MapClaims) *Claims {
	claims := &Claims{}

	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}

	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = name
	} else if preferredUsername, ok := mapClaims["preferred_username"].(string); ok {
		claims.Name = preferredUsername
	}

	claims.Role = extractRoleFromMapClaims(mapClaims)
	claims.Groups = extractGroupsFromMapClaims(mapClaims)
	claims.Countries = extractCountries(claims.Groups)

	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}
	return claims
}

// extractRoleFromMapClaims extracts role from various possible token claim locations
func extractRoleFromMapClaims(mapClaims jwt.MapClaims) string {
	// Keycloak
	if realmAccess, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realmAccess["roles"].([]interface{}); ok {
			// Priority order: admin > supervisor > agent > viewer
			for _, priority := range []string{"admin", "supervisor", "agent", "viewer"} {
				for _, role := range roles {
					if roleStr, ok := role.(string); ok && roleStr == priority {
						return roleStr
					}
				}
			}
		}
	}

	for _, key := range []string{"cognito:groups", "custom:groups"} {
		groups, ok := mapClaims[key].([]interface{})
		if !ok {
			continue
		}
		for _, group := range groups {
			groupStr, ok := group.(string)
			if !ok {
				continue
			}
			for _, role := range []string{"admin", "supervisor", "agent"} {
				if strings.Contains(groupStr, role) {
					return role
				}
			}
		}
	}

	return "viewer"
}

// extractGroupsFromMapClaims extracts groups from token claims
func extractGroupsFromMapClaims(mapClaims jwt.MapClaims) []string {
	var groups []string

	for _, key := range []string{"groups", "cognito:groups"} {
		if claim, ok := mapClaims[key].([]interface{}); ok {
			for _, group := range claim {
				if groupStr, ok := group.(string); ok {
					groups = append(groups, groupStr)
				}
			}
		}
	}

	return groups
}

// extractCountries parses country codes from group paths.
// Groups are expected in format: /countries/SK, /countries/CZ, etc.
func extractCountries(groups []string) []string {
	var countries []string
	seen := make(map[string]bool)

	for _, group := range groups {
		if !strings.HasPrefix(group, countryPrefix) {
			continue
		}
		cc := strings.TrimPrefix(group, countryPrefix)
		if idx := strings.Index(cc, "/"); idx > 0 {
			cc = cc[:idx]
		}
		cc = strings.ToUpper(cc)
		if cc != "" && !seen[cc] {
			seen[cc] = true
			countries = append(countries, cc)
		}
	}

	return countries
}

// FilterRoster keeps the roster agents whose country the user may see. Agents without a
// country are only visible to admins. It returns the snapshot itself when nothing is
// filtered and nil when no agent is visible.
func FilterRoster(claims *Claims, snapshot *types.RosterSnapshot) *types.RosterSnapshot {
	if claims == nil || claims.Role == string(types.RoleAdmin) || len(snapshot.Agents) == 0 {
		return snapshot
	}

	var agents []types.AgentInfo
	for _, agent := range snapshot.Agents {
		if agent.Country != "" && claims.IsCountryAllowed(agent.Country) {
			agents = append(agents, agent)
		}
	}

	if len(agents) == 0 {
		return nil
	}
	if len(agents) == len(snapshot.Agents) {
		return snapshot
	}

	summary := types.Summarize(agents)
	summary.CallEvents = snapshot.Summary.CallEvents
	return &types.RosterSnapshot{
		Type:      snapshot.Type,
		Timestamp: snapshot.Timestamp,
		Summary:   summary,
		Agents:    agents,
	}
}
