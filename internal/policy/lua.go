package policy

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/taphold/internal/key"
)

// Lua hook names a script may define. Any subset is fine; hooks the
// script leaves out keep their defaults.
const (
	luaShouldHoldInstantly  = "should_hold_instantly"
	luaSecondShouldHold     = "second_should_hold_instantly"
	luaTapOnSameSidePress   = "choose_tap_on_same_side_press"
	luaTapOnSameSideRelease = "choose_tap_on_same_side_release"
	luaForcingTimeout       = "timeout_for_forcing_choice"
	luaForcedChoice         = "forced_choice_after_timeout"
	luaNeutralizeMods       = "should_neutralize_mods"
	luaHoldCodeOverride     = "hold_code_override"
	luaHoldWhenSameSide     = "register_as_hold_when_same_side"
	luaPredictionFactor     = "prediction_factor_for_hold"
)

// LuaPolicy owns a Lua state whose script overrides policy hooks. Close
// it when the engine owning the policy is discarded.
type LuaPolicy struct {
	state *lua.LState
}

// FromLua loads a script and returns a policy with the hooks the script
// defines bound to its functions, all other hooks at their defaults.
func FromLua(path string) (*Policy, *LuaPolicy, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, nil, fmt.Errorf("loading policy script %s: %w", path, err)
	}

	lp := &LuaPolicy{state: L}
	p := &Policy{}

	if fn := lp.fn(luaShouldHoldInstantly); fn != nil {
		p.ShouldHoldInstantly = func(ctx Context, code key.Code, rec *key.Record) bool {
			return lp.callBool(fn, lp.contextTable(ctx), lua.LNumber(code))
		}
	}
	if fn := lp.fn(luaSecondShouldHold); fn != nil {
		p.SecondShouldHoldInstantly = func(ctx Context, code key.Code, rec *key.Record) bool {
			return lp.callBool(fn, lp.contextTable(ctx), lua.LNumber(code))
		}
	}
	if fn := lp.fn(luaTapOnSameSidePress); fn != nil {
		p.ChooseTapOnSameSideSecondPress = func(ctx Context) bool {
			return lp.callBool(fn, lp.contextTable(ctx))
		}
	}
	if fn := lp.fn(luaTapOnSameSideRelease); fn != nil {
		p.ChooseTapOnSameSideSecondRelease = func(ctx Context) bool {
			return lp.callBool(fn, lp.contextTable(ctx))
		}
	}
	if fn := lp.fn(luaForcingTimeout); fn != nil {
		p.TimeoutForForcingChoice = func(ctx Context) int16 {
			return int16(lp.callNumber(fn, lp.contextTable(ctx)))
		}
	}
	if fn := lp.fn(luaForcedChoice); fn != nil {
		p.ForcedChoiceAfterTimeout = func(ctx Context) Choice {
			switch lp.callString(fn, lp.contextTable(ctx)) {
			case "tap":
				return ChoiceTap
			case "hold":
				return ChoiceHold
			}
			return ChoiceNone
		}
	}
	if fn := lp.fn(luaNeutralizeMods); fn != nil {
		p.ShouldNeutralizeMods = func(mods key.Packed) bool {
			return lp.callBool(fn, lua.LNumber(mods))
		}
	}
	if fn := lp.fn(luaHoldCodeOverride); fn != nil {
		p.HoldCodeOverride = func(ctx Context) key.Code {
			return key.Code(lp.callNumber(fn, lp.contextTable(ctx)))
		}
	}
	if fn := lp.fn(luaHoldWhenSameSide); fn != nil {
		p.RegisterAsHoldWhenSameSide = func(ctx Context, code key.Code, rec *key.Record) bool {
			return lp.callBool(fn, lp.contextTable(ctx), lua.LNumber(code))
		}
	}
	if fn := lp.fn(luaPredictionFactor); fn != nil {
		p.PredictionFactorForHold = func(ctx Context) float64 {
			return lp.callNumber(fn, lp.contextTable(ctx))
		}
	}

	p.FillDefaults()
	return p, lp, nil
}

// Close releases the Lua state.
func (lp *LuaPolicy) Close() {
	lp.state.Close()
}

// fn returns the global function with the given name, or nil.
func (lp *LuaPolicy) fn(name string) *lua.LFunction {
	if f, ok := lp.state.GetGlobal(name).(*lua.LFunction); ok {
		return f
	}
	return nil
}

// contextTable converts the hook context into a Lua table. Conversion is
// one-way; scripts cannot mutate engine state.
func (lp *LuaPolicy) contextTable(ctx Context) *lua.LTable {
	t := lp.state.NewTable()
	lp.state.SetField(t, "pth_keycode", lua.LNumber(ctx.PTHCode()))
	lp.state.SetField(t, "second_keycode", lua.LNumber(ctx.SecondCode()))
	lp.state.SetField(t, "has_second", lua.LBool(ctx.HasSecond()))
	lp.state.SetField(t, "second_is_tap_hold", lua.LBool(ctx.SecondIsTapHold()))
	lp.state.SetField(t, "second_is_same_side", lua.LBool(ctx.SecondIsSameSide()))
	lp.state.SetField(t, "prev_decision_was_hold", lua.LBool(ctx.PrevDecisionWasHold()))
	lp.state.SetField(t, "prev_press_to_pth_press_dur", lua.LNumber(ctx.PrevPressToPTHPressDur()))
	lp.state.SetField(t, "user_bits", lua.LNumber(ctx.PTHUserBits().UserValue()))
	lp.state.SetField(t, "mods", lua.LNumber(ctx.Mods()))
	lp.state.SetField(t, "caps_word", lua.LBool(ctx.CapsWord()))
	return t
}

func (lp *LuaPolicy) call(fn *lua.LFunction, args ...lua.LValue) lua.LValue {
	if err := lp.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil
	}
	ret := lp.state.Get(-1)
	lp.state.Pop(1)
	return ret
}

func (lp *LuaPolicy) callBool(fn *lua.LFunction, args ...lua.LValue) bool {
	return lua.LVAsBool(lp.call(fn, args...))
}

func (lp *LuaPolicy) callNumber(fn *lua.LFunction, args ...lua.LValue) float64 {
	return float64(lua.LVAsNumber(lp.call(fn, args...)))
}

func (lp *LuaPolicy) callString(fn *lua.LFunction, args ...lua.LValue) string {
	return lua.LVAsString(lp.call(fn, args...))
}
