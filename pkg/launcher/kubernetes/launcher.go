/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package kubernetes launches container tasks as single pods. Artifact data
// is passed through hostPath mounts, which assumes a single-node cluster or
// a shared filesystem mounted at the same path on every node.
package kubernetes

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/errors"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/launcher"
	"github.com/Cloud-Pipelines/pipelines-backend/pkg/storage"
)

const (
	Kind = "kubernetes"

	mainContainerName = "main"
	podNamePrefix     = "task-pod-"

	managedAnnotationKey  = "cloud-pipelines.net"
	launcherAnnotationKey = "cloud-pipelines.net/launchers.kubernetes"
	// Component annotations may patch the generated pod or main container.
	podPatchAnnotationKey           = "cloud-pipelines.net/launchers/kubernetes/pod_patch"
	mainContainerPatchAnnotationKey = "cloud-pipelines.net/launchers/kubernetes/main_container_patch"
)

// Launcher implements launcher.Launcher on a Kubernetes cluster.
type Launcher struct {
	client         kubernetes.Interface
	namespace      string
	serviceAccount string
	provider       storage.Provider
}

var _ launcher.Launcher = &Launcher{}

func NewLauncher(client kubernetes.Interface, namespace, serviceAccount string, provider storage.Provider) *Launcher {
	return &Launcher{
		client:         client,
		namespace:      namespace,
		serviceAccount: serviceAccount,
		provider:       provider,
	}
}

func (l *Launcher) Kind() string {
	return Kind
}

func (l *Launcher) Launch(ctx context.Context, req *launcher.LaunchRequest) (launcher.LaunchedContainer, error) {
	if req.ComponentSpec.Implementation == nil || req.ComponentSpec.Implementation.Container == nil {
		return nil, errors.NewLauncherError("component has no container implementation")
	}
	containerSpec := req.ComponentSpec.Implementation.Container

	volumes := map[string]corev1.Volume{}
	var volumeMounts []corev1.VolumeMount
	addMount := func(name, containerPath, artifactURI string, readOnly bool) error {
		volume, mount, err := hostPathVolume(name, containerPath, artifactURI, readOnly)
		if err != nil {
			return err
		}
		volumes[volume.Name] = volume
		volumeMounts = append(volumeMounts, mount)
		return nil
	}

	providedInputs := map[string]bool{}
	for name := range req.InputArguments {
		providedInputs[name] = true
	}
	resolver := &launcher.PlaceholderResolver{
		GetInputValue: launcher.InputValueGetter(ctx, l.provider, req.InputArguments),
		GetInputPath: func(inputName string) (string, error) {
			uri, err := launcher.StageInputURI(ctx, l.provider, inputName, req.InputArguments[inputName])
			if err != nil {
				return "", err
			}
			containerPath := launcher.ContainerInputPath(inputName)
			volumeName := sanitizeResourceName("inputs-" + inputName)
			if err := addMount(volumeName, containerPath, uri, true); err != nil {
				return "", err
			}
			return containerPath, nil
		},
		GetOutputPath: func(outputName string) (string, error) {
			containerPath := launcher.ContainerOutputPath(outputName)
			volumeName := sanitizeResourceName("outputs-" + outputName)
			if err := addMount(volumeName, containerPath, req.OutputURIs[outputName], false); err != nil {
				return "", err
			}
			return containerPath, nil
		},
	}
	resolved, err := launcher.ResolveCommandLine(req.ComponentSpec, providedInputs, resolver)
	if err != nil {
		return nil, err
	}

	var env []corev1.EnvVar
	for name, value := range resolved.Env {
		env = append(env, corev1.EnvVar{Name: name, Value: value})
	}
	mainContainer := corev1.Container{
		Name:         mainContainerName,
		Image:        containerSpec.Image,
		Command:      resolved.Command,
		Env:          env,
		VolumeMounts: volumeMounts,
	}
	if patch := annotationPatch(req.Annotations, mainContainerPatchAnnotationKey); patch != nil {
		if err := applyJSONPatch(&mainContainer, patch); err != nil {
			return nil, err
		}
	}

	var podVolumes []corev1.Volume
	for _, volume := range volumes {
		podVolumes = append(podVolumes, volume)
	}
	pod := corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: podNamePrefix,
			Annotations: map[string]string{
				managedAnnotationKey:  "true",
				launcherAnnotationKey: "true",
			},
		},
		Spec: corev1.PodSpec{
			Containers:                    []corev1.Container{mainContainer},
			Volumes:                       podVolumes,
			RestartPolicy:                 corev1.RestartPolicyNever,
			ServiceAccountName:            l.serviceAccount,
			TerminationGracePeriodSeconds: ptr.To[int64](30),
		},
	}
	if patch := annotationPatch(req.Annotations, podPatchAnnotationKey); patch != nil {
		if err := applyJSONPatch(&pod, patch); err != nil {
			return nil, err
		}
	}

	createdPod, err := l.client.CoreV1().Pods(l.namespace).Create(ctx, &pod, metav1.CreateOptions{})
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to create pod: %v", err)
	}
	klog.Infof("Created pod %s/%s", createdPod.Namespace, createdPod.Name)
	return &LaunchedKubernetesContainer{
		PodName:    createdPod.Name,
		Namespace:  createdPod.Namespace,
		OutputURIs: req.OutputURIs,
		LogURI:     req.LogURI,
		Pod:        createdPod,
	}, nil
}

func (l *Launcher) Refresh(ctx context.Context, container launcher.LaunchedContainer) (launcher.LaunchedContainer, error) {
	handle, err := kubernetesHandle(container)
	if err != nil {
		return nil, err
	}
	pod, err := l.client.CoreV1().Pods(handle.Namespace).Get(ctx, handle.PodName, metav1.GetOptions{})
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to get pod %s/%s: %v", handle.Namespace, handle.PodName, err)
	}
	refreshed := *handle
	refreshed.Pod = pod
	return &refreshed, nil
}

func (l *Launcher) GetLog(ctx context.Context, container launcher.LaunchedContainer) (string, error) {
	stream, err := l.StreamLog(ctx, container)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	log, err := io.ReadAll(stream)
	if err != nil {
		return "", errors.NewLauncherErrorf("failed to read pod log: %v", err)
	}
	return string(log), nil
}

func (l *Launcher) StreamLog(ctx context.Context, container launcher.LaunchedContainer) (io.ReadCloser, error) {
	handle, err := kubernetesHandle(container)
	if err != nil {
		return nil, err
	}
	request := l.client.CoreV1().Pods(handle.Namespace).GetLogs(handle.PodName, &corev1.PodLogOptions{
		Container:  mainContainerName,
		Timestamps: true,
	})
	stream, err := request.Stream(ctx)
	if err != nil {
		return nil, errors.NewLauncherErrorf("failed to stream pod log: %v", err)
	}
	return stream, nil
}

func (l *Launcher) Terminate(ctx context.Context, container launcher.LaunchedContainer) error {
	handle, err := kubernetesHandle(container)
	if err != nil {
		return err
	}
	err = l.client.CoreV1().Pods(handle.Namespace).Delete(ctx, handle.PodName, metav1.DeleteOptions{})
	if err != nil {
		return errors.NewLauncherErrorf("failed to delete pod %s/%s: %v", handle.Namespace, handle.PodName, err)
	}
	return nil
}

func (l *Launcher) DeserializePayload(payload []byte) (launcher.LaunchedContainer, error) {
	var handle LaunchedKubernetesContainer
	if err := json.Unmarshal(payload, &handle); err != nil {
		return nil, errors.NewLauncherErrorf("failed to parse kubernetes container handle: %v", err)
	}
	return &handle, nil
}

func kubernetesHandle(container launcher.LaunchedContainer) (*LaunchedKubernetesContainer, error) {
	handle, ok := container.(*LaunchedKubernetesContainer)
	if !ok {
		return nil, errors.NewLauncherErrorf("container handle has kind %q, expected %q", container.Kind(), Kind)
	}
	return handle, nil
}

// LaunchedKubernetesContainer tracks one task pod. The last observed pod
// object is kept for status mapping and debugging.
type LaunchedKubernetesContainer struct {
	PodName    string            `json:"pod_name"`
	Namespace  string            `json:"namespace"`
	OutputURIs map[string]string `json:"output_uris"`
	LogURI     string            `json:"log_uri"`
	Pod        *corev1.Pod       `json:"pod,omitempty"`
}

var _ launcher.LaunchedContainer = &LaunchedKubernetesContainer{}

func (c *LaunchedKubernetesContainer) Kind() string {
	return Kind
}

func (c *LaunchedKubernetesContainer) Status() launcher.ContainerStatus {
	if c.Pod == nil {
		return launcher.ContainerPending
	}
	switch c.Pod.Status.Phase {
	case corev1.PodPending:
		return launcher.ContainerPending
	case corev1.PodRunning:
		return launcher.ContainerRunning
	case corev1.PodSucceeded:
		return launcher.ContainerSucceeded
	case corev1.PodFailed:
		return launcher.ContainerFailed
	default:
		return launcher.ContainerError
	}
}

func (c *LaunchedKubernetesContainer) ExitCode() *int64 {
	terminated := c.mainContainerTerminatedState()
	if terminated == nil {
		return nil
	}
	return ptr.To(int64(terminated.ExitCode))
}

func (c *LaunchedKubernetesContainer) StartedAt() *time.Time {
	if c.Pod == nil || c.Pod.Status.StartTime == nil {
		return nil
	}
	return &c.Pod.Status.StartTime.Time
}

func (c *LaunchedKubernetesContainer) EndedAt() *time.Time {
	terminated := c.mainContainerTerminatedState()
	if terminated == nil || terminated.FinishedAt.IsZero() {
		return nil
	}
	return &terminated.FinishedAt.Time
}

func (c *LaunchedKubernetesContainer) SerializePayload() ([]byte, error) {
	return json.Marshal(c)
}

func (c *LaunchedKubernetesContainer) mainContainerTerminatedState() *corev1.ContainerStateTerminated {
	if c.Pod == nil {
		return nil
	}
	for _, containerStatus := range c.Pod.Status.ContainerStatuses {
		if containerStatus.Name == mainContainerName {
			return containerStatus.State.Terminated
		}
	}
	return nil
}

// hostPathVolume mounts the artifact's parent directory into the container
// at the parent of the requested path. The file names must match so the data
// lands at the artifact URI.
func hostPathVolume(name, containerPath, artifactURI string, readOnly bool) (corev1.Volume, corev1.VolumeMount, error) {
	containerDir, containerFile := path.Split(containerPath)
	hostDir, artifactFile := path.Split(strings.TrimPrefix(artifactURI, "file://"))
	if containerFile != artifactFile {
		return corev1.Volume{}, corev1.VolumeMount{}, errors.NewLauncherErrorf(
			"container file name %q differs from artifact file name %q", containerFile, artifactFile)
	}
	volume := corev1.Volume{
		Name: name,
		VolumeSource: corev1.VolumeSource{
			HostPath: &corev1.HostPathVolumeSource{Path: strings.TrimRight(hostDir, "/")},
		},
	}
	mount := corev1.VolumeMount{
		Name:      name,
		MountPath: strings.TrimRight(containerDir, "/"),
		ReadOnly:  readOnly,
	}
	return volume, mount, nil
}

var resourceNameSanitizer = strings.NewReplacer("_", "-", ".", "-", "/", "-", " ", "-")

func sanitizeResourceName(name string) string {
	result := strings.ToLower(resourceNameSanitizer.Replace(name))
	result = storage.SanitizeName(result)
	if len(result) > 63 {
		result = result[:63]
	}
	return strings.Trim(result, "-")
}

// annotationPatch extracts a map-valued patch from the merged annotations.
func annotationPatch(annotations map[string]interface{}, key string) map[string]interface{} {
	if annotations == nil {
		return nil
	}
	patch, _ := annotations[key].(map[string]interface{})
	return patch
}

// applyJSONPatch merges patch into obj through its JSON form. Maps merge
// recursively; any other value is replaced.
func applyJSONPatch(obj interface{}, patch map[string]interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.NewLauncherErrorf("failed to serialize object for patching: %v", err)
	}
	var objMap map[string]interface{}
	if err := json.Unmarshal(data, &objMap); err != nil {
		return errors.NewLauncherErrorf("failed to parse object for patching: %v", err)
	}
	mergeMapRecursively(objMap, patch)
	patched, err := json.Marshal(objMap)
	if err != nil {
		return errors.NewLauncherErrorf("failed to serialize patched object: %v", err)
	}
	if err := json.Unmarshal(patched, obj); err != nil {
		return errors.NewLauncherErrorf("failed to apply patch: %v", err)
	}
	return nil
}

func mergeMapRecursively(dst, src map[string]interface{}) {
	for key, srcValue := range src {
		if dstMap, ok := dst[key].(map[string]interface{}); ok {
			if srcMap, ok := srcValue.(map[string]interface{}); ok {
				mergeMapRecursively(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcValue
	}
}
