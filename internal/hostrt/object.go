package hostrt

import (
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtval"
)

// TypeIdOf implements Viper.Object.TypeIdOf: the stable int32 id this
// Runtime assigned the pointer's struct type when it was constructed
// from mod.Classes (spec §6's `rt_typeid_of`). A pointer to a plain
// (non-class) struct, or a null pointer, has no type id.
func (r *Runtime) TypeIdOf(p rtval.Value) (rtval.Value, error) {
	if p.Ptr.Cell == nil || p.Ptr.Cell.ElemType.Kind != il.KindStruct {
		return rtval.Int(il.I32, 0), nil
	}
	return rtval.Int(il.I32, int64(r.classIDs[p.Ptr.Cell.ElemType.Struct])), nil
}

// IsA implements Viper.Object.IsA: whether sub's class is base or
// (transitively) derives from it, walking ClassInfo.BaseClass.
func (r *Runtime) IsA(sub, base rtval.Value) (rtval.Value, error) {
	id := int32(sub.I)
	want := int32(base.I)
	for id != 0 {
		if id == want {
			return rtval.Bool(true), nil
		}
		ci, ok := r.classByID(id)
		if !ok || ci.BaseClass == "" {
			break
		}
		id = r.classIDs[ci.BaseClass]
	}
	return rtval.Bool(false), nil
}

// Implements implements Viper.Object.Implements: whether typeID's class
// (or an ancestor) declares an itable for interfaceID, or has one bound
// at run time through BindInterface.
func (r *Runtime) Implements(typeID, interfaceID rtval.Value) (rtval.Value, error) {
	id := int32(typeID.I)
	ifaceName := r.ifaceByID[int32(interfaceID.I)]
	for id != 0 {
		r.mu.Lock()
		_, bound := r.itables[[2]int32{id, int32(interfaceID.I)}]
		r.mu.Unlock()
		if bound {
			return rtval.Bool(true), nil
		}
		ci, ok := r.classByID(id)
		if !ok {
			break
		}
		if _, has := ci.Interfaces[ifaceName]; has {
			return rtval.Bool(true), nil
		}
		if ci.BaseClass == "" {
			break
		}
		id = r.classIDs[ci.BaseClass]
	}
	return rtval.Bool(false), nil
}

// CastAs implements Viper.Object.CastAs: p if p's dynamic type IsA
// targetType, else the null pointer (spec §6's checked downcast).
func (r *Runtime) CastAs(p, targetType rtval.Value) (rtval.Value, error) {
	tid, _ := r.TypeIdOf(p)
	ok, _ := r.IsA(tid, targetType)
	if ok.IsTrue() {
		return p, nil
	}
	return rtval.NullPtr(il.PtrTy), nil
}

// BindInterface implements Viper.Object.BindInterface: records the
// itable binding a (class, interface) pair to its vtable pointer,
// supporting interfaces bound after their implementing class is loaded
// (spec §6).
func (r *Runtime) BindInterface(classID, interfaceID, vtable rtval.Value) (rtval.Value, error) {
	r.mu.Lock()
	r.itables[[2]int32{int32(classID.I), int32(interfaceID.I)}] = vtable
	r.mu.Unlock()
	return rtval.Value{}, nil
}
