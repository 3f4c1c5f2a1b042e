package game

import (
	"fmt"

	"github.com/scythe504/mafia-backend/internal"
	"go.uber.org/zap"
)

// Investigate reveals to the Detective alone whether target is Mafia. It is
// allowed once per day cycle, during discussion or voting.
func (r *Registry) Investigate(connID, code, targetID string) (internal.InvestigationResultData, error) {
	var result internal.InvestigationResultData
	err := r.withPlayer(internal.ReqInvestigate, connID, code, func(room *internal.Room, p *internal.Player) error {
		if !room.Phase.IsDay() {
			return fmt.Errorf("%w: investigations happen during the day", ErrWrongPhase)
		}
		if !p.IsAlive {
			return ErrActorNotAlive
		}
		if p.Role != internal.RoleDetective {
			return ErrLacksRole
		}
		if room.DetectiveUsed {
			return ErrAllowanceUsed
		}
		target := room.GetPlayer(targetID)
		if target == nil || !target.IsAlive || target.Id == p.Id {
			return ErrInvalidTarget
		}

		room.DetectiveUsed = true
		room.DetectiveTarget = target.Id
		r.touch(room)

		result = internal.InvestigationResultData{
			TargetID: target.Id,
			Username: target.Username,
			IsMafia:  target.IsMafia(),
		}
		r.sendTo(p.ConnID, internal.Message[internal.InvestigationResultData]{
			Type: internal.MsgInvestigationResult,
			Data: result,
		})
		r.logger.Debug("[Investigate] investigation used",
			zap.String("room", room.Code), zap.Int("round", room.RoundNumber))
		return nil
	})
	return result, err
}
