package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Role is the staff role carried in the bearer token.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleNurse        Role = "nurse"
	RoleDoctor       Role = "doctor"
	RoleCashier      Role = "cashier"
	RolePharmacist   Role = "pharmacist"
	RoleLabScientist Role = "lab_scientist"
	RoleRadiographer Role = "radiographer"
	RoleAccountant   Role = "accountant"
)

// Roles lists every known role.
var Roles = []Role{
	RoleAdmin, RoleReceptionist, RoleNurse, RoleDoctor, RoleCashier,
	RolePharmacist, RoleLabScientist, RoleRadiographer, RoleAccountant,
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Capability is a single permission checked by route guards.
type Capability string

const (
	CapViewPatients          Capability = "patients:view"
	CapManagePatients        Capability = "patients:manage"
	CapViewEncounters        Capability = "encounters:view"
	CapCreateEncounter       Capability = "encounters:create"
	CapUpdateEncounterStatus Capability = "encounters:status"
	CapDeleteEncounter       Capability = "encounters:delete"
	CapAttachCharges         Capability = "encounters:charges"
	CapRecordDiagnosis       Capability = "encounters:diagnose"
	CapConfirmPayment        Capability = "payments:confirm"
	CapViewCatalog           Capability = "catalog:view"
	CapManageCatalog         Capability = "catalog:manage"
	CapViewInventory         Capability = "inventory:view"
	CapManageInventory       Capability = "inventory:manage"
	CapPrescribe             Capability = "prescriptions:create"
	CapDispense              Capability = "prescriptions:dispense"
	CapViewWards             Capability = "wards:view"
	CapManageWards           Capability = "wards:manage"
	CapManageSettings        Capability = "settings:manage"
	CapViewBanks             Capability = "banks:view"
	CapManageBanks           Capability = "banks:manage"
	CapViewClinicalReports   Capability = "reports:clinical"
	CapViewFinancialReports  Capability = "reports:financial"
)

var allCapabilities = []Capability{
	CapViewPatients, CapManagePatients,
	CapViewEncounters, CapCreateEncounter, CapUpdateEncounterStatus, CapDeleteEncounter,
	CapAttachCharges, CapRecordDiagnosis, CapConfirmPayment,
	CapViewCatalog, CapManageCatalog,
	CapViewInventory, CapManageInventory, CapPrescribe, CapDispense,
	CapViewWards, CapManageWards,
	CapManageSettings, CapViewBanks, CapManageBanks,
	CapViewClinicalReports, CapViewFinancialReports,
}

// Capabilities returns the permission set for the role. Unknown roles get
// nothing.
func (r Role) Capabilities() []Capability {
	switch r {
	case RoleAdmin:
		return allCapabilities
	case RoleReceptionist:
		return []Capability{
			CapViewPatients, CapManagePatients, CapViewEncounters, CapCreateEncounter,
			CapUpdateEncounterStatus, CapViewCatalog, CapViewWards,
		}
	case RoleNurse:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapCreateEncounter, CapUpdateEncounterStatus,
			CapAttachCharges, CapViewCatalog, CapViewWards, CapViewInventory,
		}
	case RoleDoctor:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapUpdateEncounterStatus, CapAttachCharges,
			CapRecordDiagnosis, CapPrescribe, CapViewCatalog, CapViewInventory, CapViewWards,
			CapViewClinicalReports,
		}
	case RoleCashier:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapConfirmPayment, CapViewCatalog, CapViewBanks,
		}
	case RolePharmacist:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapViewCatalog, CapViewInventory,
			CapManageInventory, CapDispense,
		}
	case RoleLabScientist:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapAttachCharges, CapViewCatalog,
			CapViewClinicalReports,
		}
	case RoleRadiographer:
		return []Capability{
			CapViewPatients, CapViewEncounters, CapAttachCharges, CapViewCatalog,
			CapViewWards, CapViewClinicalReports,
		}
	case RoleAccountant:
		return []Capability{
			CapViewEncounters, CapViewCatalog, CapViewInventory, CapViewBanks, CapManageBanks,
			CapViewFinancialReports, CapViewClinicalReports,
		}
	default:
		return nil
	}
}

// Can reports whether the role holds capability c.
func (r Role) Can(c Capability) bool {
	for _, have := range r.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// Session is the authenticated actor for one request. Handlers pass it to
// services explicitly.
type Session struct {
	Token            string
	UserID           string
	Role             Role
	AssignedPharmacy *uuid.UUID
}

func (s Session) Can(c Capability) bool {
	return s.Role.Can(c)
}

const SessionKey contextKey = "session"

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionKey).(Session)
	return s, ok
}

// SessionFrom returns the request session, or a zero Session for public
// routes.
func SessionFrom(c echo.Context) Session {
	s, _ := SessionFromContext(c.Request().Context())
	return s
}

func UserIDFromContext(ctx context.Context) string {
	s, _ := SessionFromContext(ctx)
	return s.UserID
}

func RoleFromContext(ctx context.Context) Role {
	s, _ := SessionFromContext(ctx)
	return s.Role
}
