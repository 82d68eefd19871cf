package event

// Events for the image, model-serving, vfolder and volume domains.

const (
	NameImagePulled               = "image_pulled"
	NameModelServiceStatusUpdated = "model_service_status_updated"
	NameVFolderDeletionCompleted  = "vfolder_deletion_completed"
	NameVolumeMounted             = "volume_mounted"
)

// ImagePulled reports a finished image pull on one agent.
type ImagePulled struct {
	ImageRef string
	AgentID  string
}

func (e ImagePulled) Name() string              { return NameImagePulled }
func (e ImagePulled) Domain() Domain            { return DomainImage }
func (e ImagePulled) DomainID() string          { return e.ImageRef }
func (e ImagePulled) Delivery() DeliveryPattern { return Anycast }

func (e ImagePulled) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.ImageRef, e.AgentID)
}

func decodeImagePulled(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := ImagePulled{ImageRef: r.String(""), AgentID: r.String("")}
	return ev, r.Err()
}

// ModelServiceStatusUpdated reports a routing/health change of a model
// service endpoint.
type ModelServiceStatusUpdated struct {
	EndpointID string
	Status     string
}

func (e ModelServiceStatusUpdated) Name() string              { return NameModelServiceStatusUpdated }
func (e ModelServiceStatusUpdated) Domain() Domain            { return DomainModelServing }
func (e ModelServiceStatusUpdated) DomainID() string          { return e.EndpointID }
func (e ModelServiceStatusUpdated) Delivery() DeliveryPattern { return Broadcast }

func (e ModelServiceStatusUpdated) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.EndpointID, e.Status)
}

func decodeModelServiceStatusUpdated(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := ModelServiceStatusUpdated{EndpointID: r.String(""), Status: r.String("")}
	return ev, r.Err()
}

// VFolderDeletionCompleted reports that a vfolder purge finished.
type VFolderDeletionCompleted struct {
	VFolderID string
}

func (e VFolderDeletionCompleted) Name() string              { return NameVFolderDeletionCompleted }
func (e VFolderDeletionCompleted) Domain() Domain            { return DomainVFolder }
func (e VFolderDeletionCompleted) DomainID() string          { return e.VFolderID }
func (e VFolderDeletionCompleted) Delivery() DeliveryPattern { return Broadcast }

func (e VFolderDeletionCompleted) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.VFolderID)
}

func decodeVFolderDeletionCompleted(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	return VFolderDeletionCompleted{VFolderID: r.String("")}, r.Err()
}

// VolumeMounted reports a storage volume attached on an agent.
type VolumeMounted struct {
	VolumeID string
	AgentID  string
}

func (e VolumeMounted) Name() string              { return NameVolumeMounted }
func (e VolumeMounted) Domain() Domain            { return DomainVolume }
func (e VolumeMounted) DomainID() string          { return e.VolumeID }
func (e VolumeMounted) Delivery() DeliveryPattern { return Broadcast }

func (e VolumeMounted) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.VolumeID, e.AgentID)
}

func decodeVolumeMounted(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := VolumeMounted{VolumeID: r.String(""), AgentID: r.String("")}
	return ev, r.Err()
}

func init() {
	Register(NameImagePulled, decodeImagePulled)
	Register(NameModelServiceStatusUpdated, decodeModelServiceStatusUpdated)
	Register(NameVFolderDeletionCompleted, decodeVFolderDeletionCompleted)
	Register(NameVolumeMounted, decodeVolumeMounted)
}
