package components

import (
	"context"
	"fmt"

	"armature/internal/descriptor"
)

func init() {
	Register(rootKind{})
	Register(fkchainKind{})
	Register(legKind{})
	Register(footKind{})
}

// rootKind is the rig's world anchor: a single guide every other component
// can parent to.
type rootKind struct{}

func (rootKind) Type() string { return "root" }

func (rootKind) NewDescriptor() descriptor.Descriptor {
	desc := descriptor.New("root", "", "")
	desc.GuideLayer.Guides = []descriptor.Guide{
		{ID: "root", Shape: "godnode", Scale: [3]float64{1, 1, 1}},
	}
	return *desc
}

// fkchainKind builds a forward-kinematics chain whose length follows the
// linkCount guide setting.
type fkchainKind struct{}

func (fkchainKind) Type() string { return "fkchain" }

func (fkchainKind) NewDescriptor() descriptor.Descriptor {
	desc := descriptor.New("fkchain", "", "")
	desc.GuideLayer.SetSetting("linkCount", 3)
	desc.GuideLayer.Guides = fkchainGuides(3, nil)
	return *desc
}

// SetupGuides grows or shrinks the chain to the linkCount setting while
// keeping the transforms of surviving links.
func (fkchainKind) SetupGuides(_ context.Context, comp *Component) error {
	desc := comp.Descriptor()
	count := 3
	if setting := desc.GuideLayer.Setting("linkCount"); setting != nil {
		switch v := setting.Value.(type) {
		case int:
			count = v
		case float64:
			count = int(v)
		}
	}
	if count < 1 {
		return fmt.Errorf("fkchain %s: linkCount must be at least 1, got %d", comp.TokenKey(), count)
	}
	existing := make(map[string]descriptor.Guide, len(desc.GuideLayer.Guides))
	for _, guide := range desc.GuideLayer.Guides {
		existing[guide.ID] = guide
	}
	desc.GuideLayer.Guides = fkchainGuides(count, existing)
	return nil
}

func fkchainGuides(count int, existing map[string]descriptor.Guide) []descriptor.Guide {
	guides := make([]descriptor.Guide, 0, count)
	parent := ""
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("link%02d", i+1)
		if prev, ok := existing[id]; ok {
			prev.Parent = parent
			guides = append(guides, prev)
		} else {
			guides = append(guides, descriptor.Guide{
				ID:        id,
				Parent:    parent,
				Translate: [3]float64{0, float64(i), 0},
				Scale:     [3]float64{1, 1, 1},
			})
		}
		parent = id
	}
	return guides
}

// legKind is a three-segment limb chain with an up-vector guide for the pole
// vector.
type legKind struct{}

func (legKind) Type() string { return "leg" }

func (legKind) NewDescriptor() descriptor.Descriptor {
	desc := descriptor.New("leg", "", "")
	desc.GuideLayer.Guides = []descriptor.Guide{
		{ID: "upr", Translate: [3]float64{0, 9, 0}, Scale: [3]float64{1, 1, 1}},
		{ID: "mid", Parent: "upr", Translate: [3]float64{0, 5, 0.5}, Scale: [3]float64{1, 1, 1}},
		{ID: "end", Parent: "mid", Translate: [3]float64{0, 1, 0}, Scale: [3]float64{1, 1, 1}},
		{ID: "upVec", Translate: [3]float64{0, 5, 4}, Shape: "sphere", Scale: [3]float64{1, 1, 1}},
	}
	desc.GuideLayer.SetSetting("manualOrient", false)
	return *desc
}

// SetupSkeleton drops the up-vector from the joint chain, it drives the pole
// vector and never deforms.
func (legKind) SetupSkeleton(_ context.Context, comp *Component) error {
	desc := comp.Descriptor()
	joints := desc.Skeleton.Joints[:0]
	for _, joint := range desc.Skeleton.Joints {
		if joint.ID == "upVec" {
			continue
		}
		joints = append(joints, joint)
	}
	desc.Skeleton.Joints = joints
	return nil
}

// footKind carries the foot-roll pivot guides. Only ball and toe become
// joints; heel and the bank pivots exist for the rig layer.
type footKind struct{}

func (footKind) Type() string { return "foot" }

func (footKind) NewDescriptor() descriptor.Descriptor {
	desc := descriptor.New("foot", "", "")
	desc.GuideLayer.Guides = []descriptor.Guide{
		{ID: "ball", Translate: [3]float64{0, 1, 1}, Scale: [3]float64{1, 1, 1}},
		{ID: "toe", Parent: "ball", Translate: [3]float64{0, 0, 2}, Scale: [3]float64{1, 1, 1}},
		{ID: "heel", Parent: "ball", Translate: [3]float64{0, 0, -1}, Scale: [3]float64{1, 1, 1}},
		{ID: "innerPivot", Parent: "ball", Translate: [3]float64{-0.5, 0, 1}, Scale: [3]float64{1, 1, 1}},
		{ID: "outerPivot", Parent: "ball", Translate: [3]float64{0.5, 0, 1}, Scale: [3]float64{1, 1, 1}},
	}
	return *desc
}

func (footKind) SetupSkeleton(_ context.Context, comp *Component) error {
	desc := comp.Descriptor()
	keep := map[string]bool{"ball": true, "toe": true}
	joints := desc.Skeleton.Joints[:0]
	for _, joint := range desc.Skeleton.Joints {
		if !keep[joint.ID] {
			continue
		}
		joints = append(joints, joint)
	}
	desc.Skeleton.Joints = joints
	return nil
}
