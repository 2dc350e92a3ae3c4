package models

// ActorKind is the closed variant over caller roles. Resolution happens once
// at the HTTP boundary; the engine only ever branches on this tag.
type ActorKind int

const (
	ActorStudent ActorKind = iota
	ActorTeacher
	ActorModerator
	ActorAdmin
)

// Actor is the resolved caller identity passed into engine operations.
// StudentID/TeacherID are set only for the matching kind.
type Actor struct {
	Kind      ActorKind
	UserID    string
	StudentID string
	TeacherID string
}

// ResolveActor maps token claims onto the closed actor variant. Unknown
// roles resolve to ok=false and must be rejected at the boundary.
func ResolveActor(claims *JWTClaims) (Actor, bool) {
	if claims == nil {
		return Actor{}, false
	}
	actor := Actor{UserID: claims.UserID, StudentID: claims.StudentID, TeacherID: claims.TeacherID}
	switch claims.Role {
	case RoleStudent:
		actor.Kind = ActorStudent
	case RoleTeacher:
		actor.Kind = ActorTeacher
	case RoleModerator:
		actor.Kind = ActorModerator
	case RoleAdmin:
		actor.Kind = ActorAdmin
	default:
		return Actor{}, false
	}
	return actor, true
}

// CanOperate reports whether the actor may run administrative operations
// (period management, capacity grants, batch assignment, deadlines).
func (a Actor) CanOperate() bool {
	return a.Kind == ActorModerator || a.Kind == ActorAdmin
}

// IsStudent reports whether the actor acts on behalf of the given student.
func (a Actor) IsStudent(studentID string) bool {
	return a.Kind == ActorStudent && a.StudentID == studentID
}

// IsTeacher reports whether the actor acts on behalf of the given teacher.
func (a Actor) IsTeacher(teacherID string) bool {
	return a.Kind == ActorTeacher && a.TeacherID == teacherID
}

// CanActForStudent allows the student themselves or an operator.
func (a Actor) CanActForStudent(studentID string) bool {
	return a.CanOperate() || a.IsStudent(studentID)
}

// CanActForTeacher allows the teacher themselves or an operator.
func (a Actor) CanActForTeacher(teacherID string) bool {
	return a.CanOperate() || a.IsTeacher(teacherID)
}
