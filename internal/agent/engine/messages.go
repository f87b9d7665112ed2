package engine

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NotificationTitle is the push title of an online alert.
const NotificationTitle = "Emergency Alert, Please Respond"

// FallbackBuildingName is used for ids missing from the lookup.
const FallbackBuildingName = "building"

// Buildings maps building id to display name.
type Buildings map[string]string

// LoadBuildings reads a YAML mapping such as `"25": Engineering`. A missing file yields an empty lookup.
func LoadBuildings(path string) (Buildings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Buildings{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read buildings")
	}
	b := Buildings{}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return b, nil
}

// Name returns the display name of id.
func (b Buildings) Name(id string) string {
	if n, ok := b[id]; ok && n != "" {
		return n
	}
	return FallbackBuildingName
}

// OnlineBody is the push body sent through the notification function.
func (b Buildings) OnlineBody(id string) string {
	return fmt.Sprintf("There is an emergency in %s building no. #%s, Please respond as soon as possible.", b.Name(id), id)
}

// DefaultDescription is used when the reporter leaves the description empty.
func (b Buildings) DefaultDescription(id string) string {
	return fmt.Sprintf("There is an emergency in %s bldg no. #%s, Please respond as soon as possible.", b.Name(id), id)
}

// SMSBody is the text sent to responders, both by the server and by the offline broadcast.
func SMSBody(id string) string {
	return fmt.Sprintf("Reskyow Emergency Alert!!!\n\nPlease go to building #%s\n\nYou can view the full detail and media in the app\nNote: This is an offline emergency alert.", id)
}
