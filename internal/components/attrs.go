package components

// Scene node kinds written by the engine. The scene store itself is
// kind-agnostic; these strings are the vocabulary shared by the rig façade,
// the components and the command layer.
const (
	NodeKindRigRoot         = "rigRoot"
	NodeKindComponentsLayer = "componentsLayer"
	NodeKindSkeletonLayer   = "skeletonLayer"
	NodeKindGeometryLayer   = "geometryLayer"
	NodeKindSelectionSet    = "selectionSet"
	NodeKindComponent       = "component"
	NodeKindGuideLayer      = "guideLayer"
	NodeKindRigLayer        = "rigLayer"
	NodeKindGuide           = "guide"
	NodeKindJoint           = "joint"
	NodeKindControl         = "control"
)

// Attribute keys on rig root nodes.
const (
	AttrIsRig             = "isRig"
	AttrRigName           = "rigName"
	AttrRigVersion        = "rigVersion"
	AttrConfiguration     = "configuration"
	AttrBuildScriptConfig = "buildScriptConfig"
)

// Attribute keys on component meta nodes.
const (
	AttrIsComponent       = "isComponent"
	AttrName              = "name"
	AttrSide              = "side"
	AttrComponentType     = "componentType"
	AttrVersion           = "version"
	AttrDescriptor        = "descriptor"
	AttrParentComponent   = "parentComponent"
	AttrHasGuide          = "hasGuide"
	AttrHasSkeleton       = "hasSkeleton"
	AttrHasRig            = "hasRig"
	AttrHasPolished       = "hasPolished"
	AttrPinned            = "pinned"
	AttrPinnedConstraints = "pinnedConstraints"
)

// Attribute keys on layer and DAG nodes.
const (
	AttrGuideVisibility        = "guideVisibility"
	AttrGuideControlVisibility = "guideControlVisibility"
	AttrID                     = "id"
	AttrGuideRef               = "guide"
	AttrShape                  = "shape"
	AttrPivotColor             = "pivotColor"
	AttrTranslate              = "translate"
	AttrRotate                 = "rotate"
	AttrScale                  = "scale"
)

// DefaultGuidePivotColor is the pivot color stamped on guides whose
// descriptor does not override it.
var DefaultGuidePivotColor = [3]float64{1.0, 1.0, 0.0}

// DefaultGuideShape is the control shape stamped on guides whose descriptor
// does not override it.
const DefaultGuideShape = "circle"
