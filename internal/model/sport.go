package model

// Sport is one of the sports the app knows about. The list is closed:
// profiles and games naming anything else are rejected.
type Sport string

const (
	SportCricket    Sport = "cricket"
	SportFootball   Sport = "football"
	SportBadminton  Sport = "badminton"
	SportBasketball Sport = "basketball"
	SportTennis     Sport = "tennis"
	SportVolleyball Sport = "volleyball"
)

// Sports lists every known sport in display order.
var Sports = []Sport{
	SportCricket,
	SportFootball,
	SportBadminton,
	SportBasketball,
	SportTennis,
	SportVolleyball,
}

func (s Sport) Valid() bool {
	for _, known := range Sports {
		if s == known {
			return true
		}
	}
	return false
}
