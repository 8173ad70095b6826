package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-service/internal/domain"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// Operation names a guarded lifecycle operation.
type Operation string

const (
	OpTicketCreate           Operation = "ticket.create"
	OpTicketList             Operation = "ticket.list"
	OpTicketGet              Operation = "ticket.get"
	OpTicketListByClient     Operation = "ticket.list_by_client"
	OpTicketListByTechnician Operation = "ticket.list_by_technician"
	OpTicketUpdateStatus     Operation = "ticket.update_status"
	OpTicketUpdateFields     Operation = "ticket.update_fields"
	OpTicketDelete           Operation = "ticket.delete"

	OpDirectoryRead  Operation = "directory.read"
	OpDirectoryWrite Operation = "directory.write"

	OpUserRead  Operation = "user.read"
	OpUserWrite Operation = "user.write"
)

// policy maps each operation to the roles permitted to invoke it.
// Defined once at configuration time, immutable after that.
var policy = map[Operation][]domain.Role{
	OpTicketCreate:           {domain.RoleClient},
	OpTicketList:             {domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient},
	OpTicketGet:              {domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient},
	OpTicketListByClient:     {domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient},
	OpTicketListByTechnician: {domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient},
	OpTicketUpdateStatus:     {domain.RoleAdmin, domain.RoleTechnician},
	OpTicketUpdateFields:     {domain.RoleAdmin, domain.RoleTechnician},
	OpTicketDelete:           {domain.RoleAdmin},

	OpDirectoryRead:  {domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient},
	OpDirectoryWrite: {domain.RoleAdmin},

	// User records carry credentials and roles; only admins touch them.
	OpUserRead:  {domain.RoleAdmin},
	OpUserWrite: {domain.RoleAdmin},
}

// PermittedRoles exposes the policy entry for an operation.
func PermittedRoles(op Operation) []domain.Role {
	return policy[op]
}

// Authorize decides allow/deny for a principal against the declared role set.
// An empty role set admits every authenticated principal. Unknown roles never
// match anything.
func Authorize(principal *domain.Principal, required []domain.Role) error {
	if principal == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(required) == 0 {
		return nil
	}
	if !domain.IsValidRole(principal.Role) {
		return apperrors.NewForbidden("role not permitted for this operation")
	}
	for _, role := range required {
		if principal.Role == role {
			return nil
		}
	}
	return apperrors.NewForbidden("role not permitted for this operation")
}

// Require returns a guard middleware enforcing the policy for op.
// It distinguishes a missing principal (401) from a disallowed role (403).
func Require(op Operation) fiber.Handler {
	required := policy[op]
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := Authorize(principal, required); err != nil {
			return err
		}
		return c.Next()
	}
}
