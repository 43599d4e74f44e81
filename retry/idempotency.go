package retry

// Classification tags an operation with its idempotency class, fixed at
// operation-definition time. The class decides whether the operation gets an
// always-on policy, a precondition-gated policy, or no retry at all.
type Classification int

const (
	// ClassNever marks operations that are never safe to retry
	// automatically, such as inserts with server-assigned names.
	ClassNever Classification = iota

	// ClassAlways marks operations safe to repeat unconditionally.
	ClassAlways

	// ClassIfGenerationMatch requires a generation precondition.
	ClassIfGenerationMatch

	// ClassIfMetagenerationMatch requires a metageneration precondition.
	ClassIfMetagenerationMatch

	// ClassIfEtagMatch requires an etag in the request body.
	ClassIfEtagMatch
)

func (c Classification) String() string {
	switch c {
	case ClassAlways:
		return "always"
	case ClassIfGenerationMatch:
		return "if_generation_match"
	case ClassIfMetagenerationMatch:
		return "if_metageneration_match"
	case ClassIfEtagMatch:
		return "if_etag_match"
	default:
		return "never"
	}
}

// Op identifies a remote operation.
type Op string

const (
	OpBucketList   Op = "buckets.list"
	OpBucketGet    Op = "buckets.get"
	OpBucketInsert Op = "buckets.insert"
	OpBucketDelete Op = "buckets.delete"
	OpBucketPatch  Op = "buckets.patch"

	OpObjectList           Op = "objects.list"
	OpObjectGet            Op = "objects.get"
	OpObjectRead           Op = "objects.read"
	OpObjectInsert         Op = "objects.insert"
	OpObjectInsertAutoName Op = "objects.insert_auto_name"
	OpObjectDelete         Op = "objects.delete"
	OpObjectPatch          Op = "objects.patch"
	OpObjectUpdate         Op = "objects.update"
	OpObjectCompose        Op = "objects.compose"
	OpObjectRewrite        Op = "objects.rewrite"

	// OpPartUpload writes one part of a chunked upload. The part's index and
	// byte range fully determine its placement, so repeating it is safe.
	OpPartUpload Op = "objects.part_upload"
)

// classifications is the static idempotency table. Reads and fully-named
// writes are safe; mutations of existing resources are safe only behind a
// matching precondition; auto-named inserts are never safe.
var classifications = map[Op]Classification{
	OpBucketList:   ClassAlways,
	OpBucketGet:    ClassAlways,
	OpBucketInsert: ClassAlways,
	OpBucketDelete: ClassAlways,
	OpBucketPatch:  ClassIfMetagenerationMatch,

	OpObjectList:           ClassAlways,
	OpObjectGet:            ClassAlways,
	OpObjectRead:           ClassAlways,
	OpObjectInsert:         ClassIfGenerationMatch,
	OpObjectInsertAutoName: ClassNever,
	OpObjectDelete:         ClassIfGenerationMatch,
	OpObjectPatch:          ClassIfEtagMatch,
	OpObjectUpdate:         ClassIfMetagenerationMatch,
	OpObjectCompose:        ClassIfGenerationMatch,
	OpObjectRewrite:        ClassIfGenerationMatch,

	OpPartUpload: ClassAlways,
}

// Classify looks up an operation's idempotency class. Unknown operations
// classify as never-idempotent, the conservative default.
func Classify(op Op) Classification {
	if c, ok := classifications[op]; ok {
		return c
	}
	return ClassNever
}

// DirectiveFor maps an operation to its default retry directive.
func DirectiveFor(op Op) Directive {
	return DirectiveWith(op, DefaultPolicy)
}

// DirectiveWith maps an operation to a directive built around the given
// policy instead of the package default. The idempotency class still decides
// the activation predicate; only the backoff/deadline behavior changes.
func DirectiveWith(op Op, p *Policy) Directive {
	switch Classify(op) {
	case ClassAlways:
		return Plain(p)
	case ClassIfGenerationMatch:
		return Conditional(&ConditionalPolicy{Policy: p, Activation: GenerationSpecified})
	case ClassIfMetagenerationMatch:
		return Conditional(&ConditionalPolicy{Policy: p, Activation: MetagenerationSpecified})
	case ClassIfEtagMatch:
		return Conditional(&ConditionalPolicy{Policy: p, Activation: EtagInBody})
	default:
		return NoRetry()
	}
}
