package auth

import (
	"github.com/gin-gonic/gin"

	"medqueue/internal/models"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uint
	Role   models.Role
}

// IdentityFrom returns the identity set by Middleware, or a zero Identity.
func IdentityFrom(c *gin.Context) Identity {
	role, _ := c.Get(roleKey)
	r, _ := role.(models.Role)
	return Identity{UserID: c.GetUint(userIDKey), Role: r}
}

// SetIdentity stores id the way Middleware does.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(roleKey, id.Role)
}

type Operation string

const (
	OpJoin           Operation = "join"
	OpStatus         Operation = "status"
	OpPosition       Operation = "position"
	OpCallNext       Operation = "call_next"
	OpInConsultation Operation = "in_consultation"
	OpComplete       Operation = "complete"
	OpCancel         Operation = "cancel"
)

var (
	anyRole   = []models.Role{models.RoleAdmin, models.RoleDoctor, models.RolePatient, models.RoleStaff}
	clinician = []models.Role{models.RoleDoctor, models.RoleStaff, models.RoleAdmin}
	booking   = []models.Role{models.RolePatient, models.RoleStaff, models.RoleAdmin}
)

var policy = map[Operation][]models.Role{
	OpJoin:           booking,
	OpStatus:         anyRole,
	OpPosition:       anyRole,
	OpCallNext:       clinician,
	OpInConsultation: clinician,
	OpComplete:       clinician,
	OpCancel:         booking,
}

// RolesFor lists the roles allowed to perform op.
func RolesFor(op Operation) []models.Role {
	return policy[op]
}

// Allowed reports whether role may perform op.
func Allowed(role models.Role, op Operation) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// CanActFor reports whether the caller may act on behalf of patientID.
// Patients may only act for themselves.
func (id Identity) CanActFor(patientID uint) bool {
	return id.Role != models.RolePatient || id.UserID == patientID
}
