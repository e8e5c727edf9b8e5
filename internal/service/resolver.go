package service

import (
	"fmt"
	"strings"

	"agendalo/internal/db"
	"agendalo/internal/entities"
	apperrors "agendalo/internal/errors"
)

// User-facing reasons, kept in the tenant's language.
const (
	reasonBooked       = "Reservado"
	reasonBlockedStaff = "Bloqueado por el establecimiento"
)

// poolView is the per-interval occupancy picture of a resource pool:
// which members are taken by confirmed bookings, which are individually
// blocked, and whether a global block covers the whole interval.
type poolView struct {
	busy        map[string]bool
	blocked     map[string]bool
	globalBlock bool
}

func buildPoolView(overlapping []db.Appointment, blocks []db.BlockedSlot) poolView {
	v := poolView{busy: map[string]bool{}, blocked: map[string]bool{}}
	for _, a := range overlapping {
		if name := strings.TrimSpace(a.MemberName); name != "" {
			v.busy[name] = true
		}
	}
	for _, b := range blocks {
		name := strings.TrimSpace(b.MemberName)
		if name == "" {
			v.globalBlock = true
			continue
		}
		v.blocked[name] = true
	}
	return v
}

func (v poolView) memberFree(name string) bool {
	return !v.busy[name] && !v.blocked[name]
}

// resolveMember decides whether the requested interval can be allocated and,
// for pool services with no preference, picks the first free member in
// declaration order. overlapping and blocks must already be scoped to the
// tenant and interval.
func resolveMember(svc *db.Service, requested string, overlapping []db.Appointment, blocks []db.BlockedSlot) (string, error) {
	if svc.ResourceMode != db.ResourceModePool {
		if len(overlapping) > 0 {
			return "", apperrors.E(apperrors.KindResourceBusy, "No hay disponibilidad para ese horario.")
		}
		if len(blocks) > 0 {
			return "", apperrors.E(apperrors.KindResourceBlocked, "Horario bloqueado por el establecimiento.")
		}
		return "", nil
	}

	v := buildPoolView(overlapping, blocks)
	requested = strings.TrimSpace(requested)

	if requested != "" {
		if len(svc.PoolMembers) > 0 && !poolHasMember(svc.PoolMembers, requested) {
			return "", apperrors.E(apperrors.KindResourceNotInPool, "El recurso seleccionado no pertenece a este servicio.")
		}
		if v.busy[requested] {
			return "", apperrors.E(apperrors.KindResourceBusy, "El recurso seleccionado ya esta reservado en ese horario.")
		}
		if v.globalBlock || v.blocked[requested] {
			return "", apperrors.E(apperrors.KindResourceBlocked, "El recurso seleccionado esta bloqueado para ese horario.")
		}
		return requested, nil
	}

	if v.globalBlock {
		return "", apperrors.E(apperrors.KindResourceBlocked, "Horario bloqueado por el establecimiento.")
	}
	if len(svc.PoolMembers) == 0 {
		// Unrestricted pool: no declared membership to pick from, so any
		// overlapping booking exhausts it.
		if len(overlapping) > 0 {
			return "", apperrors.E(apperrors.KindNoAvailability, "No hay recursos disponibles para ese horario.")
		}
		return "", nil
	}
	for _, m := range svc.PoolMembers {
		if v.memberFree(m.Name) {
			return m.Name, nil
		}
	}
	return "", apperrors.E(apperrors.KindNoAvailability, "No hay recursos disponibles para ese horario.")
}

// rivalConfirmed reports whether any of the overlapping confirmed
// appointments occupies the same resource identity as appt. For pool services
// with a named member only that member counts; an appointment without a
// member contends with the whole pool.
func rivalConfirmed(svc *db.Service, appt *db.Appointment, overlapping []db.Appointment) bool {
	for _, other := range overlapping {
		if svc.ResourceMode == db.ResourceModePool && appt.MemberName != "" && other.MemberName != appt.MemberName {
			continue
		}
		return true
	}
	return false
}

func poolHasMember(members []db.PoolMember, name string) bool {
	for _, m := range members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// classifySlot tags one candidate interval for the availability snapshot.
func classifySlot(svc *db.Service, overlapping []db.Appointment, blocks []db.BlockedSlot) (string, string) {
	if svc.ResourceMode != db.ResourceModePool {
		if len(overlapping) > 0 {
			return entities.SlotConfirmed, reasonBooked
		}
		if len(blocks) > 0 {
			return entities.SlotBlocked, blockReason(blocks)
		}
		return entities.SlotAvailable, ""
	}

	v := buildPoolView(overlapping, blocks)
	if v.globalBlock {
		return entities.SlotBlocked, blockReason(blocks)
	}

	total := len(svc.PoolMembers)
	if total == 0 {
		// Unrestricted pool degrades to single-resource semantics.
		if len(overlapping) > 0 {
			return entities.SlotConfirmed, reasonBooked
		}
		if len(blocks) > 0 {
			return entities.SlotBlocked, blockReason(blocks)
		}
		return entities.SlotAvailable, ""
	}

	free := 0
	anyBlocked := false
	for _, m := range svc.PoolMembers {
		if v.blocked[m.Name] {
			anyBlocked = true
		}
		if v.memberFree(m.Name) {
			free++
		}
	}
	switch {
	case free > 0:
		return entities.SlotAvailable, fmt.Sprintf("%d/%d recursos libres", free, total)
	case anyBlocked:
		return entities.SlotBlocked, blockReason(blocks)
	default:
		return entities.SlotConfirmed, reasonBooked
	}
}

func blockReason(blocks []db.BlockedSlot) string {
	for _, b := range blocks {
		if r := strings.TrimSpace(b.Reason); r != "" {
			return r
		}
	}
	return reasonBlockedStaff
}
