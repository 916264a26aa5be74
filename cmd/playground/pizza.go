package main

import (
	"errors"
	"slices"
)

// Pizza is the payload built by the playground. Its defaults come from the configuration.
type Pizza struct {
	Size     string
	Slices   int
	Toppings []string
}

func (p *Pizza) ApplyDefault() {
	if p.Size == "" {
		p.Size = "medium"
	}
	if p.Slices == 0 {
		p.Slices = 8
	}
	if len(p.Toppings) == 0 {
		p.Toppings = []string{"tomato", "mozzarella"}
	}
}

// Clone copies the pizza, toppings included.
func (p *Pizza) Clone() *Pizza {
	c := *p
	c.Toppings = slices.Clone(p.Toppings)
	return &c
}

func (p *Pizza) SetSize(size string) {
	p.Size = size
}

func (p *Pizza) AddTopping(topping string) {
	p.Toppings = append(p.Toppings, topping)
}

func (p *Pizza) Validate() error {
	if p.Slices <= 0 {
		return errors.New("a pizza needs at least one slice")
	}
	if len(p.Toppings) > 8 {
		return errors.New("too many toppings")
	}
	return nil
}
