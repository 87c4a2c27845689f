package core

import "testing"

func TestComponentType_Values(t *testing.T) {
	cases := map[ComponentType]string{
		ComponentTypeModule:  "module",
		ComponentTypeAdapter: "adapter",
		ComponentTypeHandler: "handler",
	}
	for ct, want := range cases {
		if string(ct) != want {
			t.Errorf("expected %s, got %s", want, string(ct))
		}
	}
}
