package referenceframe

import "github.com/pkg/errors"

// ErrNoRootLink is returned when a model has no link without a parent joint.
var ErrNoRootLink = errors.New("model has no root link")

// NewLinkNotFoundError returns an error indicating that a link of the given name is not part of the model.
func NewLinkNotFoundError(name string) error {
	return errors.Errorf("link %q not found in model", name)
}

// NewJointNotFoundError returns an error indicating that a joint of the given name is not part of the model.
func NewJointNotFoundError(name string) error {
	return errors.Errorf("joint %q not found in model", name)
}

// NewGroupNotFoundError returns an error indicating that a planning group of the given name is not part of the model.
func NewGroupNotFoundError(name string) error {
	return errors.Errorf("group %q not found in model", name)
}

// NewDuplicateNameError returns an error indicating that a link, joint or group name is used twice.
func NewDuplicateNameError(kind, name string) error {
	return errors.Errorf("%s %q is defined more than once", kind, name)
}

// NewMultipleParentsError returns an error indicating that a link is the child of more than one joint.
func NewMultipleParentsError(link string) error {
	return errors.Errorf("link %q is the child of more than one joint", link)
}

// NewUnsupportedJointTypeError returns an error indicating a joint type with no kinematics defined for it.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type %q", jointType)
}

// NewDisconnectedLinkError returns an error indicating that a link is not connected to the root of the model.
func NewDisconnectedLinkError(link string) error {
	return errors.Errorf("link %q has no parent joint and is not the root link", link)
}
