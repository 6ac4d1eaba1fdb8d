package platform

import (
	"github.com/purchaseml/purchase-predictor/pkg/deploy"
)

// Deployment flavors. Managed endpoints get a full MPI runtime on general
// purpose instances; container instances run the slim inference image on
// compute optimized instances.
const (
	managedImage   = "ghcr.io/purchaseml/serving-openmpi:latest"
	containerImage = "ghcr.io/purchaseml/serving-minimal-inference:latest"

	managedInstanceType   = "Standard_DS2_v2"
	containerInstanceType = "Standard_F2s_v2"
)

// Deployment type tags recorded in deployment_info.json.
const (
	TypeManagedEndpoint   = "managed_endpoint"
	TypeContainerInstance = "container_instance"
	TypeLocal             = "local"
)

// ManagedEndpointSpec returns the resource template for a managed online
// endpoint deployment.
func ManagedEndpointSpec(modelRef, codeDir string) deploy.ResourceSpec {
	return deploy.ResourceSpec{
		ModelReference: modelRef,
		CodeDir:        codeDir,
		ScoringModule:  "score",
		Environment: deploy.EnvironmentSpec{
			Name:  "purchase-predictor-env",
			Image: managedImage,
		},
		Compute: deploy.ComputeSpec{
			InstanceType:  managedInstanceType,
			InstanceCount: 1,
		},
		Request: deploy.RequestSettings{
			TimeoutMS:      90000,
			MaxConcurrent:  1,
			MaxQueueWaitMS: 500,
		},
		Tags: map[string]string{"project": "purchase-predictor"},
	}
}

// ContainerInstanceSpec returns the resource template for a container
// instance deployment.
func ContainerInstanceSpec(modelRef, codeDir string) deploy.ResourceSpec {
	spec := ManagedEndpointSpec(modelRef, codeDir)
	spec.Environment.Image = containerImage
	spec.Compute.InstanceType = containerInstanceType
	return spec
}
