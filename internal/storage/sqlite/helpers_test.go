package sqlite

import "github.com/paulmach/orb"

type identity struct{}

func (identity) Project(p orb.Point) orb.Point { return p }
